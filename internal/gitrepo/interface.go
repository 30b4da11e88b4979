package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cloner turns a discovered repository into a local checkout. Implementations report
// ordinary clone failures through the outcome and never abort the caller.
type Cloner interface {
	Clone(ctx context.Context, repo Repository) CloneOutcome
}

type CloneResult string

const (
	Cloned  CloneResult = "cloned"
	Skipped CloneResult = "skipped"
	Failed  CloneResult = "failed"
	// Planned is what a dry run reports instead of cloning.
	Planned CloneResult = "planned"
)

type CloneOutcome struct {
	Task        CloneTask
	Result      CloneResult
	ExitCode    int
	Duration    time.Duration
	StdoutLines int
	StderrLines int
	Err         error
}

type CloneStage string

const (
	StageMkdir CloneStage = "mkdir"
	StageCheck CloneStage = "check"
	StageSpawn CloneStage = "spawn"
	StageWait  CloneStage = "wait"
	StageExit  CloneStage = "exit"
)

var ErrCloneFailures = errors.New("one or more repositories failed to clone")

type CloneError struct {
	Repository Repository
	Directory  string
	Stage      CloneStage
	ExitCode   int
	Err        error
}

func (e *CloneError) Error() string {
	if e.Stage == StageExit {
		return fmt.Sprintf("clone of %s into %s exited with code %d", e.Repository.SSHURLToRepo, e.Directory, e.ExitCode)
	}
	return fmt.Sprintf("clone of %s into %s failed at %s: %v", e.Repository.SSHURLToRepo, e.Directory, e.Stage, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}
