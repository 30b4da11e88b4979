package gitlab

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"gcm/internal/counter"
	"gcm/internal/gitrepo"
)

type MockLister struct {
	pageSize      int
	topLevel      []Group
	subgroups     map[int][]Group
	projects      map[int][]Project
	failSubgroups map[int]bool
	failProjects  map[int]bool
	requests      map[string]int
}

func newMockLister(pageSize int) *MockLister {
	return &MockLister{
		pageSize:      pageSize,
		subgroups:     map[int][]Group{},
		projects:      map[int][]Project{},
		failSubgroups: map[int]bool{},
		failProjects:  map[int]bool{},
		requests:      map[string]int{},
	}
}

func pageOf[T any](items []T, size int, page int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	return items[start:min(start+size, len(items))]
}

func (m *MockLister) ListGroups(_ context.Context, page int) ([]Group, error) {
	m.requests["groups"]++
	return pageOf(m.topLevel, m.pageSize, page), nil
}

func (m *MockLister) ListSubgroups(_ context.Context, groupID int, page int) ([]Group, error) {
	resource := fmt.Sprintf("groups/%d/subgroups", groupID)
	m.requests[resource]++
	if m.failSubgroups[groupID] {
		return nil, &ListingError{Resource: resource, Page: page, Kind: Transport, Err: errors.New("connection reset by peer")}
	}
	return pageOf(m.subgroups[groupID], m.pageSize, page), nil
}

func (m *MockLister) ListProjects(_ context.Context, groupID int, page int) ([]Project, error) {
	resource := fmt.Sprintf("groups/%d/projects", groupID)
	m.requests[resource]++
	if m.failProjects[groupID] {
		return nil, &ListingError{Resource: resource, Page: page, Kind: Status, StatusCode: 500, Err: errors.New("internal server error")}
	}
	return pageOf(m.projects[groupID], m.pageSize, page), nil
}

type MockCloner struct {
	cloned  []string
	results map[string]gitrepo.CloneResult
	onClone func(repo gitrepo.Repository)
}

func (m *MockCloner) Clone(_ context.Context, repo gitrepo.Repository) gitrepo.CloneOutcome {
	m.cloned = append(m.cloned, repo.Name)
	if m.onClone != nil {
		m.onClone(repo)
	}
	result := gitrepo.Cloned
	if r, ok := m.results[repo.Name]; ok {
		result = r
	}
	return gitrepo.CloneOutcome{Task: gitrepo.CloneTask{Repository: repo}, Result: result}
}

func project(id int, namespace, name string) Project {
	return Project{
		ID:           id,
		Name:         name,
		Path:         name,
		SSHURLToRepo: fmt.Sprintf("git@gitlab.example.com:%s/%s.git", namespace, name),
		Namespace:    Namespace{FullPath: namespace},
	}
}

// sampleTree builds group 1 "a" with subgroups 2 "a/b" and 3 "a/c", and 4 "a/b/d" below 2.
func sampleTree(pageSize int) *MockLister {
	lister := newMockLister(pageSize)
	lister.topLevel = []Group{{ID: 1, FullPath: "a"}}
	lister.subgroups[1] = []Group{{ID: 2, FullPath: "a/b"}, {ID: 3, FullPath: "a/c"}}
	lister.subgroups[2] = []Group{{ID: 4, FullPath: "a/b/d"}}
	lister.projects[1] = []Project{project(11, "a", "p1")}
	lister.projects[2] = []Project{project(21, "a/b", "p2")}
	lister.projects[3] = []Project{project(31, "a/c", "p3")}
	lister.projects[4] = []Project{project(41, "a/b/d", "p4")}
	return lister
}

func TestTreeWalker_RequestsEveryPageUntilEmpty(t *testing.T) {
	tests := []struct {
		items         int
		pageSize      int
		expectedPages int
	}{
		{items: 0, pageSize: 50, expectedPages: 1},
		{items: 7, pageSize: 3, expectedPages: 4},
		{items: 6, pageSize: 3, expectedPages: 3},
		{items: 120, pageSize: 50, expectedPages: 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items in pages of %d", tt.items, tt.pageSize), func(t *testing.T) {
			lister := newMockLister(tt.pageSize)
			for i := 0; i < tt.items; i++ {
				lister.projects[1] = append(lister.projects[1], project(i+1, "org/team", fmt.Sprintf("repo-%03d", i)))
			}
			cloner := &MockCloner{}

			result, err := NewTreeWalker(lister, cloner, WalkerOptions{}).WalkGroups(context.Background(), 1)

			require.NoError(t, err)
			require.Equal(t, tt.expectedPages, lister.requests["groups/1/projects"])
			require.Equal(t, 1, lister.requests["groups/1/subgroups"])
			require.Len(t, cloner.cloned, tt.items)
			require.Equal(t, tt.items, result.ProjectsSeen)
			require.Equal(t, tt.items, result.Results[gitrepo.Cloned])
		})
	}
}

func TestTreeWalker_Exclusion(t *testing.T) {
	lister := newMockLister(50)
	lister.projects[1] = []Project{
		project(1, "org/hengshan/team", "excluded"),
		project(2, "org/other/team", "included"),
		project(3, "org/xlushanx", "substring"),
		project(4, "org/Hengshan", "case"),
	}
	cloner := &MockCloner{}
	walker := NewTreeWalker(lister, cloner, WalkerOptions{Exclusion: Exclusion{"hengshan", "lushan"}})

	result, err := walker.WalkGroups(context.Background(), 1)

	require.NoError(t, err)
	require.Equal(t, []string{"included", "case"}, cloner.cloned)
	require.Equal(t, 2, result.ProjectsExcluded)
}

func TestTreeWalker_ClonesDiscoveredTreeSkippingExcludedNamespace(t *testing.T) {
	lister := newMockLister(50)
	lister.subgroups[1] = []Group{{ID: 2, FullPath: "a/b"}}
	lister.projects[1] = []Project{project(101, "a", "R1"), project(102, "a/hengshan", "R2")}
	lister.projects[2] = []Project{project(103, "a/b", "R3")}
	cloner := &MockCloner{}
	walker := NewTreeWalker(lister, cloner, WalkerOptions{Exclusion: Exclusion{"hengshan", "lushan"}})

	_, err := walker.WalkGroups(context.Background(), 1)

	require.NoError(t, err)
	if diff := cmp.Diff([]string{"R1", "R3"}, cloner.cloned); diff != "" {
		t.Errorf("cloned repositories mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeWalker_TraversalOrder(t *testing.T) {
	tests := []struct {
		traversal Traversal
		expected  []string
	}{
		{traversal: DepthFirst, expected: []string{"p1", "p2", "p4", "p3"}},
		{traversal: BreadthFirst, expected: []string{"p1", "p2", "p3", "p4"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.traversal), func(t *testing.T) {
			cloner := &MockCloner{}
			walker := NewTreeWalker(sampleTree(1), cloner, WalkerOptions{Traversal: tt.traversal})

			result, err := walker.WalkGroups(context.Background(), 1)

			require.NoError(t, err)
			require.Equal(t, tt.expected, cloner.cloned)
			require.Equal(t, 4, result.GroupsVisited)
		})
	}
}

func TestTreeWalker_ListingFailureAbortsRun(t *testing.T) {
	lister := sampleTree(50)
	lister.failSubgroups[2] = true
	cloner := &MockCloner{}

	_, err := NewTreeWalker(lister, cloner, WalkerOptions{}).WalkGroups(context.Background(), 1)

	var listingErr *ListingError
	require.ErrorAs(t, err, &listingErr)
	require.Equal(t, "groups/2/subgroups", listingErr.Resource)
	require.Equal(t, []string{"p1", "p2"}, cloner.cloned)
	require.Zero(t, lister.requests["groups/3/projects"])
}

func TestTreeWalker_FailedGroupIsNotCountedAsVisited(t *testing.T) {
	for _, policy := range []ListingErrorPolicy{AbortRun, SkipBranch} {
		t.Run(string(policy), func(t *testing.T) {
			lister := sampleTree(50)
			lister.failProjects[3] = true
			groups := counter.NewCounter()
			defer groups.Stop()
			walker := NewTreeWalker(lister, &MockCloner{}, WalkerOptions{OnListingError: policy, GroupCounter: groups})

			result, _ := walker.WalkGroups(context.Background(), 1)

			// group 3 is the last in depth-first order, so 1, 2 and 4 were listed
			require.Equal(t, 3, result.GroupsVisited)
			require.Equal(t, 3, groups.Count())
		})
	}
}

func TestTreeWalker_SkipBranchContinuesWithSiblings(t *testing.T) {
	lister := sampleTree(50)
	lister.failProjects[2] = true
	cloner := &MockCloner{}
	walker := NewTreeWalker(lister, cloner, WalkerOptions{OnListingError: SkipBranch})

	result, err := walker.WalkGroups(context.Background(), 1)

	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p3"}, cloner.cloned)
	require.Len(t, result.ListingErrors, 1)
	require.Equal(t, "groups/2/projects", result.ListingErrors[0].Resource)
	require.Zero(t, lister.requests["groups/2/subgroups"], "the failed group's subgroups are abandoned")
}

func TestTreeWalker_WalkAllVisitsEachGroupOnce(t *testing.T) {
	lister := sampleTree(2)
	// /groups also lists subgroups visible to the token
	lister.topLevel = []Group{{ID: 1, FullPath: "a"}, {ID: 2, FullPath: "a/b"}, {ID: 3, FullPath: "a/c"}}
	cloner := &MockCloner{}
	groups := counter.NewCounter()
	defer groups.Stop()
	projects := counter.NewCounter()
	defer projects.Stop()
	walker := NewTreeWalker(lister, cloner, WalkerOptions{GroupCounter: groups, ProjectCounter: projects})

	result, err := walker.WalkAll(context.Background())

	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2", "p4", "p3"}, cloner.cloned)
	require.Equal(t, 4, result.GroupsVisited)
	require.Equal(t, 2, lister.requests["groups/2/projects"], "one page with the project and the terminating empty page")
	require.Equal(t, 3, lister.requests["groups"])
	require.Equal(t, 4, groups.Count())
	require.Equal(t, 4, projects.Count())
}

func TestTreeWalker_CloneFailuresDoNotStopTheWalk(t *testing.T) {
	cloner := &MockCloner{results: map[string]gitrepo.CloneResult{"p2": gitrepo.Failed}}

	result, err := NewTreeWalker(sampleTree(50), cloner, WalkerOptions{}).WalkGroups(context.Background(), 1)

	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2", "p4", "p3"}, cloner.cloned)
	require.Equal(t, 1, result.Results[gitrepo.Failed])
	require.Equal(t, 3, result.Results[gitrepo.Cloned])
}

func TestTreeWalker_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cloner := &MockCloner{onClone: func(gitrepo.Repository) { cancel() }}
	walker := NewTreeWalker(sampleTree(50), cloner, WalkerOptions{OnListingError: SkipBranch})

	_, err := walker.WalkGroups(ctx, 1)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"p1"}, cloner.cloned)
}
