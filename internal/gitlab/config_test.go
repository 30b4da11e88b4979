package gitlab

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGitLabConfig_WithDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	config := GitLabConfig{HostName: "gitlab.example.com", CloneDirectory: "~/backup-gitlab"}.WithDefaults()

	require.Equal(t, DefaultTokenEnvVar, config.EnvTokenVariableName)
	require.Equal(t, DefaultPageSize, config.PageSize)
	require.Equal(t, DefaultRequestTimeout, config.RequestTimeout)
	require.Equal(t, DefaultMaxRetries, config.MaxRetries)
	require.Equal(t, DefaultCloneTimeout, config.CloneTimeout)
	require.Equal(t, DefaultParallelism, config.Parallelism)
	require.Equal(t, DepthFirst, config.Traversal)
	require.Equal(t, AbortRun, config.OnListingError)
	require.Equal(t, []string{"git", "clone"}, config.CloneCommand)
	require.Equal(t, filepath.Join(home, "backup-gitlab"), config.CloneDirectory)
	require.Equal(t, "https://gitlab.example.com/api/v4", config.APIBaseURL())
}

func TestGitLabConfig_KeepsExplicitValues(t *testing.T) {
	config := GitLabConfig{
		BaseURL:        "http://localhost:8080/api/v4/",
		CloneDirectory: "/srv/mirror",
		PageSize:       20,
		RequestTimeout: time.Minute,
		CloneTimeout:   -1,
		MaxRetries:     -1,
		Traversal:      BreadthFirst,
		OnListingError: SkipBranch,
		CloneCommand:   []string{"git", "clone", "--mirror"},
	}.WithDefaults()

	require.Equal(t, "http://localhost:8080/api/v4", config.APIBaseURL())
	require.Equal(t, "http://localhost:8080/api/v4/", config.Name())
	require.Equal(t, 20, config.PageSize)
	require.Equal(t, time.Minute, config.RequestTimeout)
	require.Equal(t, time.Duration(-1), config.CloneTimeout)
	require.Equal(t, -1, config.MaxRetries)
	require.Zero(t, NewAPIClient(ClientOptionsFromConfig(config, "token")).maxRetries)
	require.Equal(t, BreadthFirst, config.Traversal)
	require.Equal(t, SkipBranch, config.OnListingError)
	require.Equal(t, []string{"git", "clone", "--mirror"}, config.CloneCommand)
	require.NoError(t, config.Validate())
}

func TestGitLabConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		config   GitLabConfig
		expected string
	}{
		{name: "missing host", config: GitLabConfig{CloneDirectory: "/srv"}, expected: "hostName or baseUrl"},
		{name: "missing directory", config: GitLabConfig{HostName: "h"}, expected: "cloneDirectory"},
		{name: "negative page size", config: GitLabConfig{HostName: "h", CloneDirectory: "/srv", PageSize: -1}, expected: "must not be negative"},
		{name: "unknown traversal", config: GitLabConfig{HostName: "h", CloneDirectory: "/srv", Traversal: "random"}, expected: `unknown traversal "random"`},
		{name: "unknown policy", config: GitLabConfig{HostName: "h", CloneDirectory: "/srv", OnListingError: "retry"}, expected: `unknown onListingError policy "retry"`},
		{name: "empty command", config: GitLabConfig{HostName: "h", CloneDirectory: "/srv", CloneCommand: []string{""}}, expected: "cloneCommand"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("expected error to mention %q, got %q", tt.expected, err)
			}
		})
	}
}

func TestGitLabConfig_RetrieveTokenFromEnv(t *testing.T) {
	config := GitLabConfig{EnvTokenVariableName: "GCM_TEST_TOKEN"}

	t.Setenv("GCM_TEST_TOKEN", "")
	_, err := config.RetrieveTokenFromEnv()
	require.ErrorIs(t, err, ErrTokenMissing)
	require.Contains(t, err.Error(), "GCM_TEST_TOKEN")

	t.Setenv("GCM_TEST_TOKEN", "glpat-123")
	token, err := config.RetrieveTokenFromEnv()
	require.NoError(t, err)
	require.Equal(t, "glpat-123", token)
}

func TestExclusion_IgnoresEmptyTokens(t *testing.T) {
	require.False(t, Exclusion{""}.Excludes("org/team"))
	require.False(t, Exclusion(nil).Excludes("org/team"))
	require.True(t, Exclusion{"", "team"}.Excludes("org/team"))
}
