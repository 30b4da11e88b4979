package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"
)

const DefaultLogFileName = "gcm.log"

var Log = logrus.New()

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

type Options struct {
	Verbose bool
	// Level wins over Verbose when set (trace, debug, info, warn, error).
	Level string
	// File switches output from stderr to an appended log file.
	File string
}

// InitLogger configures the shared logger. The returned closer releases the log file, if
// any, and sends later entries back to stderr.
func InitLogger(options Options) (io.Closer, error) {
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if options.Verbose {
		level = logrus.DebugLevel
	}
	if options.Level != "" {
		parsed, err := logrus.ParseLevel(options.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", options.Level, err)
		}
		level = parsed
	}
	Log.SetLevel(level)

	if options.File == "" {
		Log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	file, err := os.OpenFile(GetLogFilePath(options.File), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	Log.SetFormatter(&plainTextFormatter{TextFormatter: logrus.TextFormatter{FullTimestamp: true, DisableColors: true}})
	Log.SetOutput(file)
	Log.Debugf("Logging at %s level to %s", level, file.Name())
	return &logFile{file: file}, nil
}

func GetLogFilePath(fileName string) string {
	if fileName == "" {
		fileName = DefaultLogFileName
	}
	path, err := filepath.Abs(fileName)
	if err != nil {
		return fileName
	}
	return path
}

// plainTextFormatter drops the terminal color codes that messages carry for the console.
type plainTextFormatter struct {
	logrus.TextFormatter
}

func (f *plainTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Message = ansiEscape.ReplaceAllString(entry.Message, "")
	return f.TextFormatter.Format(entry)
}

type logFile struct {
	file *os.File
}

func (l *logFile) Close() error {
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l.file.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
