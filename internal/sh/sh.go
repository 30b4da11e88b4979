package sh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	logger "gcm/internal/log"
)

// DefaultWaitDelay bounds how long Run waits for descendants still holding the output
// pipes after the command itself exited or was killed.
const DefaultWaitDelay = 5 * time.Second

// ErrNotStarted marks failures that happened before a process existed.
var ErrNotStarted = errors.New("process not started")

type DirectoryPath string

type Command struct {
	Name string
	Args []string
	Dir  DirectoryPath
	// Env is appended to the current environment.
	Env []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Outcome struct {
	// ExitCode is -1 when the process never started or was terminated by a signal.
	ExitCode    int
	Duration    time.Duration
	StdoutLines int
	StderrLines int
}

func (o Outcome) Succeeded() bool {
	return o.ExitCode == 0
}

type Runner struct {
	WaitDelay time.Duration
}

func NewRunner() *Runner {
	return &Runner{WaitDelay: DefaultWaitDelay}
}

// Run starts the command and drains stdout and stderr line by line into sink until both
// streams end, then waits for the process. A non-zero exit is reported through
// Outcome.ExitCode together with an *exec.ExitError; a cancelled ctx kills the process.
func (r *Runner) Run(ctx context.Context, command Command, sink LineSink) (Outcome, error) {
	outcome := Outcome{ExitCode: -1}
	startTime := time.Now()

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = string(command.Dir)
	cmd.Env = append(os.Environ(), command.Env...)
	cmd.WaitDelay = r.WaitDelay

	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	if err := cmd.Start(); err != nil {
		_ = stdoutWriter.Close()
		_ = stderrWriter.Close()
		return outcome, fmt.Errorf("%w: %s: %w", ErrNotStarted, command, err)
	}

	var drains errgroup.Group
	drains.Go(func() error {
		outcome.StdoutLines = drainLines(stdoutReader, Stdout, sink)
		return nil
	})
	drains.Go(func() error {
		outcome.StderrLines = drainLines(stderrReader, Stderr, sink)
		return nil
	})

	waitErr := cmd.Wait()
	// Wait has stopped copying into the pipes, so closing them ends both drain workers.
	_ = stdoutWriter.Close()
	_ = stderrWriter.Close()
	_ = drains.Wait()

	outcome.Duration = time.Since(startTime)
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, fmt.Errorf("%s interrupted: %w", command, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return outcome, exitErr
		}
		if errors.Is(waitErr, exec.ErrWaitDelay) && outcome.ExitCode == 0 {
			logger.Log.Warnf("%s exited but its output pipes stayed open", command)
			return outcome, nil
		}
		return outcome, fmt.Errorf("failed waiting for %s: %w", command, waitErr)
	}
	return outcome, nil
}

func drainLines(reader *io.PipeReader, stream Stream, sink LineSink) int {
	lines := 0
	buffered := bufio.NewReader(reader)
	for {
		line, err := buffered.ReadString('\n')
		if line != "" {
			sink.Line(stream, strings.TrimRight(line, "\r\n"))
			lines++
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			logger.Log.Errorf("Failed reading %s: %v", stream, err)
			// unblock the writer side instead of leaving it stuck on a full pipe
			_ = reader.CloseWithError(err)
		}
		return lines
	}
}
