package tasks

import (
	"context"

	"taskd/internal/models"
)

// attachDescendants walks the forest under roots breadth first, one
// ListChildren query per level, and links every node into its parent's
// Children through an id-indexed arena.
func attachDescendants(ctx context.Context, repo Repository, roots []models.Task) ([]*models.Task, error) {
	arena := make(map[int64]*models.Task, len(roots))
	out := make([]*models.Task, 0, len(roots))
	frontier := make([]int64, 0, len(roots))

	for i := range roots {
		node := &roots[i]
		arena[node.ID] = node
		out = append(out, node)
		frontier = append(frontier, node.ID)
	}

	for len(frontier) > 0 {
		children, err := repo.ListChildren(ctx, frontier)
		if err != nil {
			return nil, err
		}

		next := make([]int64, 0, len(children))
		for i := range children {
			child := &children[i]
			if _, seen := arena[child.ID]; seen || child.ParentID == nil {
				continue
			}
			parent, ok := arena[*child.ParentID]
			if !ok {
				continue
			}
			arena[child.ID] = child
			parent.Children = append(parent.Children, child)
			next = append(next, child.ID)
		}
		frontier = next
	}

	return out, nil
}
