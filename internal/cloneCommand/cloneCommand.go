package cloneCommand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"golang.org/x/term"

	"gcm/internal/appConfig"
	"gcm/internal/cloneCommand/terminalView"
	"gcm/internal/color"
	"gcm/internal/gitlab"
	"gcm/internal/gitrepo"
	logger "gcm/internal/log"
	"gcm/internal/metrics"
	"gcm/internal/sh"
	"gcm/internal/view"
)

var ErrBranchesSkipped = errors.New("one or more group branches were skipped after listing errors")

// Target selects what to mirror: every group visible to the token, or the subtrees of
// GroupIDs on the host named HostName.
type Target struct {
	All      bool
	GroupIDs []int
	HostName string
}

type Options struct {
	DryRun bool
	// Parallelism overrides the configured clone parallelism when positive.
	Parallelism int
	// LogFilePath is shown by the error view; progress is only redrawn in place when set.
	LogFilePath string
	Out         *os.File
}

type hostRun struct {
	config    gitlab.GitLabConfig
	token     string
	viewModel *terminalView.GitLabCloneViewModel
}

type Summary struct {
	gitlab.WalkResult
	Hosts int
}

// ExecuteCloneCommand mirrors the target hosts one after the other. Clone failures do not
// stop the run; they are reported through gitrepo.ErrCloneFailures once every host is done.
func ExecuteCloneCommand(ctx context.Context, config *appConfig.AppConfig, target Target, options Options) (Summary, error) {
	startTime := time.Now()
	summary := Summary{WalkResult: gitlab.WalkResult{Results: map[gitrepo.CloneResult]int{}}}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}

	hostConfigs := config.GitLab
	if !target.All {
		hostConfig, err := config.Host(target.HostName)
		if err != nil {
			return summary, err
		}
		hostConfigs = []gitlab.GitLabConfig{hostConfig}
	}

	viewModel := terminalView.NewCloneCommandViewModel(options.LogFilePath, startTime)
	defer viewModel.Stop()

	var runs []hostRun
	var tokenErr error
	for _, hostConfig := range hostConfigs {
		token, err := hostConfig.RetrieveTokenFromEnv()
		if err != nil {
			logger.Log.Errorf("Skipping %s: %v", color.FgCyan("%s", hostConfig.Name()), err)
			tokenErr = err
			continue
		}
		runs = append(runs, hostRun{
			config:    hostConfig,
			token:     token,
			viewModel: viewModel.AddGitLabCloneVM(hostConfig.Name(), hostConfig.CloneDirectory),
		})
	}
	if len(runs) == 0 {
		return summary, tokenErr
	}

	var recorder *metrics.Recorder
	if config.MetricsFile != "" {
		recorder = metrics.NewRecorder()
	}

	progress := terminalView.NewCloneCommandView(viewModel, out)
	stopRenderLoop := startRenderLoop(progress, out, options.LogFilePath != "")

	var runErr error
	for _, run := range runs {
		result, err := mirrorHost(ctx, run, target, options, viewModel.Observer(run.viewModel), recorder.ForHost(run.config.Name()))
		summary.add(result)
		if err != nil {
			runErr = fmt.Errorf("mirroring %s failed: %w", run.config.Name(), err)
			break
		}
	}

	if stopRenderLoop != nil {
		stopRenderLoop()
	} else {
		progress.Render(view.DefaultWidth)
	}

	recorder.MarkRunFinished(time.Now())
	if err := recorder.WriteTextfile(config.MetricsFile); err != nil {
		logger.Log.Errorf("%v", err)
	}

	logger.Log.Infof("%s groups, %s projects (%s excluded): %s cloned, %s skipped, %s failed in %s seconds",
		color.FgMagenta("%d", summary.GroupsVisited),
		color.FgMagenta("%d", summary.ProjectsSeen),
		color.FgMagenta("%d", summary.ProjectsExcluded),
		color.FgGreen("%d", summary.Results[gitrepo.Cloned]),
		color.FgMagenta("%d", summary.Results[gitrepo.Skipped]),
		color.FgRed("%d", summary.Results[gitrepo.Failed]),
		color.FgGreen("%.2f", time.Since(startTime).Seconds()))
	if planned := summary.Results[gitrepo.Planned]; planned > 0 {
		logger.Log.Infof("Dry run: %s clones planned", color.FgYellow("%d", planned))
	}

	if runErr != nil {
		return summary, runErr
	}
	var incomplete []error
	if summary.Results[gitrepo.Failed] > 0 {
		incomplete = append(incomplete, fmt.Errorf("%w: %d failed", gitrepo.ErrCloneFailures, summary.Results[gitrepo.Failed]))
	}
	if len(summary.ListingErrors) > 0 {
		incomplete = append(incomplete, fmt.Errorf("%w: %d listing errors", ErrBranchesSkipped, len(summary.ListingErrors)))
	}
	if tokenErr != nil {
		incomplete = append(incomplete, tokenErr)
	}
	return summary, errors.Join(incomplete...)
}

func mirrorHost(ctx context.Context, run hostRun, target Target, options Options, observe func(gitrepo.CloneOutcome), hostMetrics *metrics.HostRecorder) (gitlab.WalkResult, error) {
	hostConfig := run.config
	if err := os.MkdirAll(hostConfig.CloneDirectory, os.ModePerm); err != nil {
		return gitlab.WalkResult{}, fmt.Errorf("failed to create clone root directory: %w", err)
	}
	logger.Log.Infof("Mirroring %s into %s", color.FgCyan("%s", hostConfig.Name()), color.FgCyan("%s", hostConfig.CloneDirectory))

	observer := func(outcome gitrepo.CloneOutcome) {
		observe(outcome)
		hostMetrics.CloneFinished(string(outcome.Result), outcome.Duration)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cloner gitrepo.Cloner
	var pool *gitrepo.ClonePool
	if options.DryRun {
		cloner = gitrepo.NewDryRunCloner(hostConfig.CloneDirectory, observer)
	} else {
		manager := gitrepo.NewCloneManager(gitrepo.CloneOptions{
			RootDirectory: hostConfig.CloneDirectory,
			Command:       hostConfig.CloneCommand,
			Timeout:       hostConfig.CloneTimeout,
		}, sh.NewRunner())
		manager.OnOutcome(observer)
		cloner = manager

		parallelism := hostConfig.Parallelism
		if options.Parallelism > 0 {
			parallelism = options.Parallelism
		}
		if parallelism > 1 {
			pool = gitrepo.NewClonePool(ctx, manager, parallelism, hostConfig.RateLimitPerSecond)
			cloner = pool
		}
	}

	walker := gitlab.NewTreeWalker(
		gitlab.NewAPIClient(gitlab.ClientOptionsFromConfig(hostConfig, run.token)),
		cloner,
		gitlab.WalkerOptions{
			Exclusion:      hostConfig.Exclude,
			Traversal:      hostConfig.Traversal,
			OnListingError: hostConfig.OnListingError,
			Metrics:        hostMetrics,
			GroupCounter:   run.viewModel.GroupCount,
			ProjectCounter: run.viewModel.ProjectCount,
		})

	var result gitlab.WalkResult
	var err error
	if target.All {
		result, err = walker.WalkAll(ctx)
	} else {
		result, err = walker.WalkGroups(ctx, target.GroupIDs...)
	}

	if pool != nil {
		if err != nil {
			// stop queued clones of an aborted run
			cancel()
		}
		outcomes := pool.Wait()
		delete(result.Results, gitrepo.Queued)
		for cloneResult, count := range lo.CountValuesBy(outcomes, func(outcome gitrepo.CloneOutcome) gitrepo.CloneResult {
			return outcome.Result
		}) {
			result.Results[cloneResult] += count
		}
	}
	return result, err
}

func startRenderLoop(progress view.View, out *os.File, ownsTerminal bool) (stop func()) {
	if !ownsTerminal || !term.IsTerminal(int(out.Fd())) {
		return nil
	}
	loop, err := view.NewTTYRenderLoop(progress, out)
	if err != nil {
		logger.Log.Debugf("Progress view disabled: %v", err)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Summary) add(result gitlab.WalkResult) {
	s.Hosts++
	s.GroupsVisited += result.GroupsVisited
	s.ProjectsSeen += result.ProjectsSeen
	s.ProjectsExcluded += result.ProjectsExcluded
	s.ListingErrors = append(s.ListingErrors, result.ListingErrors...)
	for cloneResult, count := range result.Results {
		s.Results[cloneResult] += count
	}
}
