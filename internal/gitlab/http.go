package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	logger "gcm/internal/log"
)

const redactedToken = "REDACTED"

type ListingErrorKind string

const (
	// Transport covers connection failures, timeouts and cancelled requests.
	Transport ListingErrorKind = "transport"
	Status    ListingErrorKind = "status"
	Decode    ListingErrorKind = "decode"
)

// ListingError reports a listing page that could not be fetched after all retries.
type ListingError struct {
	Resource   string
	Page       int
	Kind       ListingErrorKind
	StatusCode int
	Err        error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing %s page %d failed (%s): %v", e.Resource, e.Page, e.Kind, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt could succeed.
func (e *ListingError) retryable() bool {
	switch e.Kind {
	case Transport:
		return true
	case Status:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// gitlabGet fetches one page of resource and decodes it into T, retrying transport errors,
// 429 and 5xx responses with exponential backoff.
func gitlabGet[T any](ctx context.Context, api *APIClient, resource string, page int) (T, error) {
	var emptyResult T
	endpoint, err := url.Parse(api.baseURL + "/" + resource)
	if err != nil {
		return emptyResult, &ListingError{Resource: resource, Page: page, Kind: Transport, Err: err}
	}
	query := endpoint.Query()
	query.Set("private_token", api.token)
	query.Set("per_page", strconv.Itoa(api.pageSize))
	query.Set("page", strconv.Itoa(page))
	endpoint.RawQuery = query.Encode()

	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := doGet[T](ctx, api.client, endpoint.String())
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return emptyResult, backoff.Permanent(&ListingError{Resource: resource, Page: page, Kind: Transport, Err: ctxErr})
		}
		listingErr := &ListingError{Resource: resource, Page: page, Err: redactError(err, api.token)}
		var statusErr *statusError
		var decodeErr *decodeError
		switch {
		case errors.As(err, &statusErr):
			listingErr.Kind = Status
			listingErr.StatusCode = statusErr.code
		case errors.As(err, &decodeErr):
			listingErr.Kind = Decode
		default:
			listingErr.Kind = Transport
		}
		if !listingErr.retryable() {
			return emptyResult, backoff.Permanent(listingErr)
		}
		logger.Log.Warnf("Attempt %d of %s page %d failed, retrying: %v", attempt, resource, page, listingErr.Err)
		return emptyResult, listingErr
	}

	result, err := backoff.RetryWithData(operation, backoff.WithContext(
		backoff.WithMaxRetries(api.newBackOff(), uint64(api.maxRetries)), ctx))
	if err != nil {
		var listingErr *ListingError
		if !errors.As(err, &listingErr) {
			// the context ended between attempts
			listingErr = &ListingError{Resource: resource, Page: page, Kind: Transport, Err: err}
		}
		return emptyResult, listingErr
	}
	return result, nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GitLab API request failed with status: %s", e.status)
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.err)
}

func (e *decodeError) Unwrap() error {
	return e.err
}

func doGet[T any](ctx context.Context, client *http.Client, endpoint string) (T, error) {
	var emptyResult T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return emptyResult, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return emptyResult, err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			logger.Log.Errorf("Failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return emptyResult, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	var decodedResult T
	if err := json.NewDecoder(resp.Body).Decode(&decodedResult); err != nil {
		return emptyResult, &decodeError{err: err}
	}
	return decodedResult, nil
}

// redactError hides the access token carried in request URLs reported by net/http.
func redactError(err error, token string) error {
	var urlErr *url.Error
	if token != "" && errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("private_token") {
		query.Set("private_token", redactedToken)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func newExponentialBackOff(initialInterval time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = initialInterval
		policy.MaxInterval = 30 * initialInterval
		policy.MaxElapsedTime = 0
		return policy
	}
}
