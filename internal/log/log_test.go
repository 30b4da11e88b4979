package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_FileLogIsPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcm.log")
	closer, err := InitLogger(Options{File: path})
	require.NoError(t, err)

	Log.Infof("Cloning %s to %s", "\x1b[35morg/team\x1b[0m", "\x1b[1;36m/srv/mirror\x1b[0m")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "Cloning org/team to /srv/mirror")
	require.NotContains(t, string(content), "\x1b[")
}

func TestInitLogger_CloseReturnsToStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcm.log")
	closer, err := InitLogger(Options{File: path})
	require.NoError(t, err)

	require.NoError(t, closer.Close())

	if Log.Out != os.Stderr {
		t.Errorf("expected log output to be stderr after closing the log file, got %v", Log.Out)
	}
	Log.Errorf("written after close")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(content), "written after close")
}

func TestInitLogger_Level(t *testing.T) {
	tests := []struct {
		options  Options
		expected logrus.Level
	}{
		{options: Options{}, expected: logrus.InfoLevel},
		{options: Options{Verbose: true}, expected: logrus.DebugLevel},
		{options: Options{Verbose: true, Level: "trace"}, expected: logrus.TraceLevel},
	}
	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			_, err := InitLogger(tt.options)
			require.NoError(t, err)
			require.Equal(t, tt.expected, Log.GetLevel())
		})
	}

	_, err := InitLogger(Options{Level: "chatty"})
	require.Error(t, err)
}
