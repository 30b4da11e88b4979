package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gcm/internal/ext"
	"gcm/internal/gitrepo"
)

const defaultRetryInterval = 500 * time.Millisecond

type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

type Namespace struct {
	FullPath string `json:"full_path"`
}

type Project struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	SSHURLToRepo string    `json:"ssh_url_to_repo"`
	Namespace    Namespace `json:"namespace"`
	Archived     bool      `json:"archived"`
}

func (p Project) ToRepository() gitrepo.Repository {
	return gitrepo.Repository{
		ID:            p.ID,
		Name:          ext.DefaultValue(p.Path, p.Name),
		SSHURLToRepo:  p.SSHURLToRepo,
		NamespacePath: p.Namespace.FullPath,
		Archived:      p.Archived,
	}
}

type ClientOptions struct {
	BaseURL        string
	Token          string
	PageSize       int
	RequestTimeout time.Duration
	// MaxRetries counts attempts after the first; zero or less never retries.
	MaxRetries int
	// RetryInterval is the first backoff delay; later delays grow exponentially.
	RetryInterval time.Duration
}

func ClientOptionsFromConfig(config GitLabConfig, token string) ClientOptions {
	return ClientOptions{
		BaseURL:        config.APIBaseURL(),
		Token:          token,
		PageSize:       config.PageSize,
		RequestTimeout: config.RequestTimeout,
		MaxRetries:     config.MaxRetries,
	}
}

/*
APIClient manages access to the Gitlab API.
It adheres to the Repository pattern as well - it is at the boundary to external data (Gitlab API).
All methods are synchronous and fetch a single page - traversal is handled by the TreeWalker.
*/
type APIClient struct {
	baseURL    string
	token      string
	pageSize   int
	maxRetries int
	client     *http.Client
	newBackOff func() backoff.BackOff
}

func NewAPIClient(options ClientOptions) *APIClient {
	return &APIClient{
		baseURL:    options.BaseURL,
		token:      options.Token,
		pageSize:   ext.DefaultValue(options.PageSize, DefaultPageSize),
		maxRetries: max(options.MaxRetries, 0),
		client:     &http.Client{Timeout: ext.DefaultValue(options.RequestTimeout, DefaultRequestTimeout)},
		newBackOff: newExponentialBackOff(ext.DefaultValue(options.RetryInterval, defaultRetryInterval)),
	}
}

func (api *APIClient) ListGroups(ctx context.Context, page int) ([]Group, error) {
	return gitlabGet[[]Group](ctx, api, "groups", page)
}

func (api *APIClient) ListSubgroups(ctx context.Context, groupID int, page int) ([]Group, error) {
	return gitlabGet[[]Group](ctx, api, fmt.Sprintf("groups/%d/subgroups", groupID), page)
}

func (api *APIClient) ListProjects(ctx context.Context, groupID int, page int) ([]Project, error) {
	return gitlabGet[[]Project](ctx, api, fmt.Sprintf("groups/%d/projects", groupID), page)
}
