package gitlab

import (
	"context"
	"errors"
	"fmt"

	"gcm/internal/color"
	"gcm/internal/counter"
	"gcm/internal/gitrepo"
	logger "gcm/internal/log"
	"gcm/internal/metrics"
)

var errBranchSkipped = errors.New("group branch skipped")

type WalkerOptions struct {
	Exclusion      Exclusion
	Traversal      Traversal
	OnListingError ListingErrorPolicy
	Metrics        *metrics.HostRecorder
	// Optional live counters for the progress view.
	GroupCounter   *counter.Counter
	ProjectCounter *counter.Counter
}

type WalkResult struct {
	// GroupsVisited counts groups whose projects were listed completely.
	GroupsVisited    int
	ProjectsSeen     int
	ProjectsExcluded int
	Results          map[gitrepo.CloneResult]int
	// ListingErrors holds the failures skipped under the skip-branch policy.
	ListingErrors []*ListingError
}

// TreeWalker discovers the groups below a set of roots and hands each project it finds to
// the cloner before moving on. A walker remembers what it visited, so one walker must be
// used per run to clone every project at most once.
type TreeWalker struct {
	lister          Lister
	cloner          gitrepo.Cloner
	options         WalkerOptions
	visitedGroups   map[int]bool
	visitedProjects map[string]bool
	result          WalkResult
}

func NewTreeWalker(lister Lister, cloner gitrepo.Cloner, options WalkerOptions) *TreeWalker {
	if options.Traversal == "" {
		options.Traversal = DepthFirst
	}
	if options.OnListingError == "" {
		options.OnListingError = AbortRun
	}
	return &TreeWalker{
		lister:          lister,
		cloner:          cloner,
		options:         options,
		visitedGroups:   make(map[int]bool),
		visitedProjects: make(map[string]bool),
		result:          WalkResult{Results: make(map[gitrepo.CloneResult]int)},
	}
}

// WalkAll walks every group visible to the token. Top level groups are listed page by page
// and each one's tree is walked before the next group is taken from the page.
func (w *TreeWalker) WalkAll(ctx context.Context) (WalkResult, error) {
	fetch := func(ctx context.Context, page int) ([]Group, error) {
		groups, err := w.lister.ListGroups(ctx, page)
		if err != nil {
			return nil, w.handleListingError(ctx, err)
		}
		return groups, nil
	}
	err := ForEachPage(ctx, fetch, func(group Group) error {
		return w.walkTree(ctx, group)
	})
	if err != nil && !errors.Is(err, errBranchSkipped) {
		return w.result, err
	}
	return w.result, nil
}

func (w *TreeWalker) WalkGroups(ctx context.Context, groupIDs ...int) (WalkResult, error) {
	for _, id := range groupIDs {
		if err := w.walkTree(ctx, Group{ID: id}); err != nil {
			return w.result, err
		}
	}
	return w.result, nil
}

func (w *TreeWalker) walkTree(ctx context.Context, root Group) error {
	work := newFrontier(w.options.Traversal)
	work.push(root)
	for !work.empty() {
		if err := ctx.Err(); err != nil {
			return err
		}
		group := work.pop()
		if w.visitedGroups[group.ID] {
			continue
		}
		w.visitedGroups[group.ID] = true

		subgroups, err := w.visitGroup(ctx, group)
		if errors.Is(err, errBranchSkipped) {
			continue
		}
		if err != nil {
			return err
		}
		work.push(subgroups...)
	}
	return nil
}

// visitGroup clones the group's projects in listing order and returns its subgroups.
func (w *TreeWalker) visitGroup(ctx context.Context, group Group) ([]Group, error) {
	logger.Log.Debugf("Visiting group %s", color.FgCyan("%s", groupLabel(group)))

	listProjects := func(ctx context.Context, page int) ([]Project, error) {
		projects, err := w.lister.ListProjects(ctx, group.ID, page)
		if err != nil {
			return nil, w.handleListingError(ctx, err)
		}
		return projects, nil
	}
	if err := ForEachPage(ctx, listProjects, func(project Project) error {
		return w.visitProject(ctx, project)
	}); err != nil {
		return nil, err
	}
	w.result.GroupsVisited++
	w.options.Metrics.GroupVisited()
	increment(w.options.GroupCounter)

	var subgroups []Group
	listSubgroups := func(ctx context.Context, page int) ([]Group, error) {
		groups, err := w.lister.ListSubgroups(ctx, group.ID, page)
		if err != nil {
			return nil, w.handleListingError(ctx, err)
		}
		return groups, nil
	}
	if err := ForEachPage(ctx, listSubgroups, func(subgroup Group) error {
		subgroups = append(subgroups, subgroup)
		return nil
	}); err != nil {
		return nil, err
	}
	return subgroups, nil
}

func (w *TreeWalker) visitProject(ctx context.Context, project Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := project.SSHURLToRepo
	if key == "" {
		key = fmt.Sprintf("id:%d", project.ID)
	}
	if w.visitedProjects[key] {
		return nil
	}
	w.visitedProjects[key] = true
	w.result.ProjectsSeen++
	w.options.Metrics.ProjectDiscovered()
	increment(w.options.ProjectCounter)

	if w.options.Exclusion.Excludes(project.Namespace.FullPath) {
		logger.Log.Debugf("Excluding %s", color.FgYellow("%s", project.Namespace.FullPath+"/"+project.Name))
		w.result.ProjectsExcluded++
		w.options.Metrics.ProjectExcluded()
		return nil
	}

	outcome := w.cloner.Clone(ctx, project.ToRepository())
	w.result.Results[outcome.Result]++
	return nil
}

// handleListingError applies the listing error policy. It returns errBranchSkipped when the
// walk may continue with the next group.
func (w *TreeWalker) handleListingError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var listingErr *ListingError
	if !errors.As(err, &listingErr) {
		return err
	}
	w.options.Metrics.ListingFailed()
	if w.options.OnListingError != SkipBranch {
		return listingErr
	}
	logger.Log.Errorf("Skipping branch: %v", listingErr)
	w.result.ListingErrors = append(w.result.ListingErrors, listingErr)
	return errBranchSkipped
}

func groupLabel(group Group) string {
	if group.FullPath != "" {
		return group.FullPath
	}
	return fmt.Sprintf("%d", group.ID)
}

func increment(c *counter.Counter) {
	if c != nil {
		c.Inc()
	}
}

// frontier is the walker's work list: a stack for depth-first traversal and a queue for
// breadth-first traversal.
type frontier struct {
	groups []Group
	fifo   bool
}

func newFrontier(traversal Traversal) *frontier {
	return &frontier{fifo: traversal == BreadthFirst}
}

// push adds groups so that they are popped in the given order relative to each other.
func (f *frontier) push(groups ...Group) {
	if f.fifo {
		f.groups = append(f.groups, groups...)
		return
	}
	for i := len(groups) - 1; i >= 0; i-- {
		f.groups = append(f.groups, groups[i])
	}
}

func (f *frontier) pop() Group {
	var group Group
	if f.fifo {
		group, f.groups = f.groups[0], f.groups[1:]
	} else {
		last := len(f.groups) - 1
		group, f.groups = f.groups[last], f.groups[:last]
	}
	return group
}

func (f *frontier) empty() bool {
	return len(f.groups) == 0
}
