package gitlab

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gcm/internal/ext"
	"gcm/internal/gitrepo"
)

const (
	DefaultTokenEnvVar    = "GITLAB_TOKEN"
	DefaultPageSize       = 50
	DefaultRequestTimeout = 15 * time.Second
	DefaultMaxRetries     = 3
	DefaultCloneTimeout   = 30 * time.Minute
	DefaultParallelism    = 1
)

var ErrTokenMissing = errors.New("gitlab access token is not set")

type Traversal string

const (
	DepthFirst   Traversal = "depth-first"
	BreadthFirst Traversal = "breadth-first"
)

type ListingErrorPolicy string

const (
	// AbortRun stops the whole run on the first listing failure.
	AbortRun ListingErrorPolicy = "abort"
	// SkipBranch abandons the failing group and continues with the rest of the tree.
	SkipBranch ListingErrorPolicy = "skip-branch"
)

type GitLabConfig struct {
	HostName             string             `yaml:"hostName"`       // Gitlab host name
	BaseURL              string             `yaml:"baseUrl"`        // API base URL, defaults to https://<hostName>/api/v4
	EnvTokenVariableName string             `yaml:"tokenEnvVar"`    // The environment variable name for the GitLab token
	CloneDirectory       string             `yaml:"cloneDirectory"` // Where to clone projects in local directory structure
	PageSize             int                `yaml:"pageSize"`
	Exclude              []string           `yaml:"exclude"` // Namespace substrings that are never cloned
	RequestTimeout       time.Duration      `yaml:"requestTimeout"`
	MaxRetries           int                `yaml:"maxRetries"` // a negative value disables retries
	CloneTimeout         time.Duration      `yaml:"cloneTimeout"` // a negative value disables the per clone timeout
	CloneCommand         []string           `yaml:"cloneCommand"`
	Parallelism          int                `yaml:"parallelism"`
	RateLimitPerSecond   int                `yaml:"rateLimitPerSecond"` // 0 is interpreted as no limit
	Traversal            Traversal          `yaml:"traversal"`
	OnListingError       ListingErrorPolicy `yaml:"onListingError"`
}

// WithDefaults fills every unset field with its default value.
func (gitLabConfig GitLabConfig) WithDefaults() GitLabConfig {
	gitLabConfig.EnvTokenVariableName = ext.DefaultValue(gitLabConfig.EnvTokenVariableName, DefaultTokenEnvVar)
	gitLabConfig.PageSize = ext.DefaultValue(gitLabConfig.PageSize, DefaultPageSize)
	gitLabConfig.RequestTimeout = ext.DefaultValue(gitLabConfig.RequestTimeout, DefaultRequestTimeout)
	gitLabConfig.MaxRetries = ext.DefaultValue(gitLabConfig.MaxRetries, DefaultMaxRetries)
	gitLabConfig.CloneTimeout = ext.DefaultValue(gitLabConfig.CloneTimeout, DefaultCloneTimeout)
	gitLabConfig.Parallelism = ext.DefaultValue(gitLabConfig.Parallelism, DefaultParallelism)
	gitLabConfig.Traversal = ext.DefaultValue(gitLabConfig.Traversal, DepthFirst)
	gitLabConfig.OnListingError = ext.DefaultValue(gitLabConfig.OnListingError, AbortRun)
	if len(gitLabConfig.CloneCommand) == 0 {
		gitLabConfig.CloneCommand = gitrepo.DefaultCloneCommand
	}
	gitLabConfig.CloneDirectory = ext.ExpandHomeDir(gitLabConfig.CloneDirectory)
	return gitLabConfig
}

func (gitLabConfig GitLabConfig) Validate() error {
	var problems []string
	if gitLabConfig.HostName == "" && gitLabConfig.BaseURL == "" {
		problems = append(problems, "either hostName or baseUrl is required")
	}
	if gitLabConfig.CloneDirectory == "" {
		problems = append(problems, "cloneDirectory is required")
	}
	if gitLabConfig.PageSize < 0 || gitLabConfig.Parallelism < 0 || gitLabConfig.RateLimitPerSecond < 0 {
		problems = append(problems, "pageSize, parallelism and rateLimitPerSecond must not be negative")
	}
	if gitLabConfig.RequestTimeout < 0 {
		problems = append(problems, "requestTimeout must not be negative")
	}
	if len(gitLabConfig.CloneCommand) > 0 && gitLabConfig.CloneCommand[0] == "" {
		problems = append(problems, "cloneCommand must name an executable")
	}
	switch gitLabConfig.Traversal {
	case "", DepthFirst, BreadthFirst:
	default:
		problems = append(problems, fmt.Sprintf("unknown traversal %q", gitLabConfig.Traversal))
	}
	switch gitLabConfig.OnListingError {
	case "", AbortRun, SkipBranch:
	default:
		problems = append(problems, fmt.Sprintf("unknown onListingError policy %q", gitLabConfig.OnListingError))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration for %s: %s", gitLabConfig.Name(), strings.Join(problems, "; "))
	}
	return nil
}

// Name identifies the host in logs and metrics.
func (gitLabConfig GitLabConfig) Name() string {
	if gitLabConfig.HostName != "" {
		return gitLabConfig.HostName
	}
	return gitLabConfig.BaseURL
}

func (gitLabConfig GitLabConfig) APIBaseURL() string {
	if gitLabConfig.BaseURL != "" {
		return strings.TrimRight(gitLabConfig.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s/api/v4", gitLabConfig.HostName)
}

func (gitLabConfig GitLabConfig) RetrieveTokenFromEnv() (string, error) {
	variable := ext.DefaultValue(gitLabConfig.EnvTokenVariableName, DefaultTokenEnvVar)
	token := os.Getenv(variable)
	if token == "" {
		return "", fmt.Errorf("%w: export it as %s", ErrTokenMissing, variable)
	}
	return token, nil
}
