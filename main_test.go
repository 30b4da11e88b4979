package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gcm/internal/appConfig"
	"gcm/internal/cloneCommand"
	"gcm/internal/gitlab"
	"gcm/internal/gitrepo"
	logger "gcm/internal/log"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "success", err: nil, expected: 0},
		{name: "clone failures", err: fmt.Errorf("%w: 3 failed", gitrepo.ErrCloneFailures), expected: 2},
		{name: "skipped branches", err: errors.Join(fmt.Errorf("%w: 1 listing errors", cloneCommand.ErrBranchesSkipped)), expected: 2},
		{name: "missing config", err: fmt.Errorf("failed to load configuration: %w", appConfig.ErrConfigNotFound), expected: 1},
		{name: "listing abort", err: &gitlab.ListingError{Resource: "groups", Page: 1, Kind: gitlab.Transport, Err: errors.New("timeout")}, expected: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, exitCode(tt.err))
		})
	}
}

func TestParseGroupIDs(t *testing.T) {
	ids, err := parseGroupIDs([]string{"34", "7"})
	require.NoError(t, err)
	require.Equal(t, []int{34, 7}, ids)

	for _, invalid := range []string{"abc", "0", "-3"} {
		_, err := parseGroupIDs([]string{invalid})
		require.Error(t, err, invalid)
	}
}

func TestRootCommand_ArgumentValidation(t *testing.T) {
	tests := [][]string{
		{"group"},
		{"all", "extra"},
		{"group", "not-a-number"},
	}
	for _, args := range tests {
		t.Run(fmt.Sprint(args), func(t *testing.T) {
			command := newRootCommand(&rootOptions{})
			command.SetArgs(args)
			require.Error(t, command.Execute())
		})
	}
}

func TestRootCommand_HelpMentionsHostKeys(t *testing.T) {
	command := newRootCommand(&rootOptions{})
	require.Contains(t, command.Long, "known_hosts")
	for _, sub := range command.Commands() {
		require.Contains(t, sub.Long, "known_hosts", sub.Name())
	}
}

func TestRun_FatalErrorLandsInLogFile(t *testing.T) {
	dir := t.TempDir()
	for _, variable := range []string{appConfig.EnvBaseURL, appConfig.EnvCloneDirectory, appConfig.EnvLogFile, appConfig.EnvMetricsFile} {
		t.Setenv(variable, "")
	}
	t.Setenv("GITLAB_TOKEN", "glpat-test")
	configPath := filepath.Join(dir, appConfig.DefaultConfigFileName)
	config := fmt.Sprintf(`gitlab:
  - baseUrl: http://127.0.0.1:1/api/v4
    cloneDirectory: %s
    maxRetries: -1
`, filepath.Join(dir, "mirror"))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	logFile := filepath.Join(dir, "gcm.log")
	t.Cleanup(func() { logger.Log.SetOutput(os.Stderr) })

	err := run(context.Background(), &rootOptions{configPath: configPath, logFile: logFile}, cloneCommand.Target{GroupIDs: []int{1}})

	var listingErr *gitlab.ListingError
	require.ErrorAs(t, err, &listingErr)
	require.Equal(t, 1, exitCode(err))
	content, readErr := os.ReadFile(logFile)
	require.NoError(t, readErr)
	require.Contains(t, string(content), "listing groups/1/projects page 1 failed (transport)")
	require.Equal(t, os.Stderr, logger.Log.Out)
}
