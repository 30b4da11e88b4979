package gitrepo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"gcm/internal/color"
	logger "gcm/internal/log"
	"gcm/internal/sh"
)

var DefaultCloneCommand = []string{"git", "clone"}

type ProcessRunner interface {
	Run(ctx context.Context, command sh.Command, sink sh.LineSink) (sh.Outcome, error)
}

type CloneOptions struct {
	RootDirectory string
	// Command is invoked with the clone address appended as its last argument.
	Command []string
	// Timeout bounds one clone process; zero means no limit.
	Timeout time.Duration
}

// CloneManager runs one clone task at a time for the caller: it creates the destination
// directory, spawns the clone command there, and reports the outcome.
type CloneManager struct {
	options  CloneOptions
	runner   ProcessRunner
	observer func(CloneOutcome)
}

func NewCloneManager(options CloneOptions, runner ProcessRunner) *CloneManager {
	if len(options.Command) == 0 {
		options.Command = DefaultCloneCommand
	}
	return &CloneManager{options: options, runner: runner}
}

// OnOutcome registers a callback invoked after every task, from the goroutine that ran it.
func (manager *CloneManager) OnOutcome(observer func(CloneOutcome)) {
	manager.observer = observer
}

func (manager *CloneManager) Clone(ctx context.Context, repo Repository) CloneOutcome {
	outcome := manager.clone(ctx, NewCloneTask(manager.options.RootDirectory, repo))
	if outcome.Err != nil {
		logger.Log.WithFields(logrus.Fields{
			"repo":      repo.NamespacePath,
			"url":       repo.SSHURLToRepo,
			"directory": outcome.Task.Directory,
		}).Errorf("Failed to clone project %s: %v", color.FgRed("%s", repo.Name), outcome.Err)
	}
	if manager.observer != nil {
		manager.observer(outcome)
	}
	return outcome
}

func (manager *CloneManager) clone(ctx context.Context, task CloneTask) CloneOutcome {
	repo := task.Repository
	outcome := CloneOutcome{Task: task, Result: Failed, ExitCode: -1}
	fail := func(stage CloneStage, err error) CloneOutcome {
		outcome.Err = &CloneError{
			Repository: repo,
			Directory:  task.Directory,
			Stage:      stage,
			ExitCode:   outcome.ExitCode,
			Err:        err,
		}
		return outcome
	}

	if err := os.MkdirAll(task.Directory, os.ModePerm); err != nil {
		return fail(StageMkdir, err)
	}

	cloned, err := task.IsCloned()
	if err != nil {
		return fail(StageCheck, err)
	}
	if cloned {
		if logger.Log.IsLevelEnabled(logrus.DebugLevel) {
			logger.Log.Debugf("Git repository %s already exists at %s, skipping clone", color.FgMagenta("%s", repo.Name), color.FgMagenta("%s", task.CheckoutDir()))
		}
		outcome.Result = Skipped
		outcome.ExitCode = 0
		return outcome
	}

	if repo.Archived {
		logger.Log.Infof("Cloning archived project %s to %s", color.FgMagenta("%s", repo.NamespacePath), color.FgMagenta("%s", task.Directory))
	} else {
		logger.Log.Infof("Cloning %s to %s", color.FgMagenta("%s", repo.NamespacePath), color.FgMagenta("%s", task.Directory))
	}

	if manager.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, manager.options.Timeout)
		defer cancel()
	}

	command := sh.Command{
		Name: manager.options.Command[0],
		Args: append(append([]string{}, manager.options.Command[1:]...), repo.SSHURLToRepo),
		Dir:  sh.DirectoryPath(task.Directory),
	}
	sink := sh.Serialized(sh.NewLogSink(logger.Log.WithField("repo", repo.NamespacePath)))

	processOutcome, err := manager.runner.Run(ctx, command, sink)
	outcome.ExitCode = processOutcome.ExitCode
	outcome.Duration = processOutcome.Duration
	outcome.StdoutLines = processOutcome.StdoutLines
	outcome.StderrLines = processOutcome.StderrLines

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, sh.ErrNotStarted):
			return fail(StageSpawn, err)
		case errors.As(err, &exitErr):
			return fail(StageExit, err)
		default:
			return fail(StageWait, err)
		}
	}
	if !processOutcome.Succeeded() {
		return fail(StageExit, nil)
	}

	outcome.Result = Cloned
	logger.Log.Debugf("Cloned %s in %.2f seconds", repo.NamespacePath, outcome.Duration.Seconds())
	return outcome
}

// DryRunCloner only reports what would be cloned.
type DryRunCloner struct {
	RootDirectory string
	observer      func(CloneOutcome)
}

func NewDryRunCloner(rootDirectory string, observer func(CloneOutcome)) *DryRunCloner {
	return &DryRunCloner{RootDirectory: rootDirectory, observer: observer}
}

func (d *DryRunCloner) Clone(_ context.Context, repo Repository) CloneOutcome {
	task := NewCloneTask(d.RootDirectory, repo)
	logger.Log.Infof("Would clone %s into %s", repo.SSHURLToRepo, task.Directory)
	outcome := CloneOutcome{Task: task, Result: Planned}
	if d.observer != nil {
		d.observer(outcome)
	}
	return outcome
}
