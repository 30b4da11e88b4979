package gitlab

import "context"

// Lister fetches single pages of the GitLab listing endpoints. Pages start at 1; an empty
// page means the resource is exhausted.
type Lister interface {
	ListGroups(ctx context.Context, page int) ([]Group, error)
	ListSubgroups(ctx context.Context, groupID int, page int) ([]Group, error)
	ListProjects(ctx context.Context, groupID int, page int) ([]Project, error)
}

// ForEachPage requests pages 1, 2, ... until the first empty one and hands every item to
// consume before the next page is requested. It stops at the first error of either side.
func ForEachPage[T any](ctx context.Context, fetch func(ctx context.Context, page int) ([]T, error), consume func(T) error) error {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := fetch(ctx, page)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for _, item := range items {
			if err := consume(item); err != nil {
				return err
			}
		}
	}
}
