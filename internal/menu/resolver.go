package menu

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrNotFound     = errors.New("menu: not found")
	ErrInvalidInput = errors.New("menu: invalid input")
)

// Resolver computes the menu tree a role (or set of roles) may see.
// Resolution is default-deny and a hidden parent hides its whole
// subtree regardless of the children's own rows.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("menu: store is required")
	}
	return &Resolver{store: store}, nil
}

// VisibleMenu resolves the tree for a single role.
func (r *Resolver) VisibleMenu(ctx context.Context, roleID string) ([]*Node, error) {
	if roleID == "" {
		return nil, ErrInvalidInput
	}
	return r.resolve(ctx, []string{roleID})
}

// EffectiveMenu resolves the tree for a user holding the given roles:
// the union of each role's visible set, with the parent-gates-child rule
// re-applied across the union. No roles means an empty menu.
func (r *Resolver) EffectiveMenu(ctx context.Context, roleIDs []string) ([]*Node, error) {
	if len(roleIDs) == 0 {
		return []*Node{}, nil
	}
	return r.resolve(ctx, roleIDs)
}

// SetRoleVisibility replaces a role's visibility rows.
func (r *Resolver) SetRoleVisibility(ctx context.Context, roleID string, rows []Visibility) error {
	if roleID == "" {
		return ErrInvalidInput
	}
	for i := range rows {
		rows[i].RoleID = roleID
	}
	return r.store.ReplaceRoleVisibility(ctx, roleID, rows)
}

// GrantFullVisibility gives the role a visible row for every item.
func (r *Resolver) GrantFullVisibility(ctx context.Context, roleID string) error {
	if roleID == "" {
		return ErrInvalidInput
	}
	return r.store.SeedFullVisibility(ctx, roleID)
}

// Items lists the raw catalog for administration views.
func (r *Resolver) Items(ctx context.Context) ([]Item, error) {
	return r.store.ListItems(ctx)
}

func (r *Resolver) resolve(ctx context.Context, roleIDs []string) ([]*Node, error) {
	items, err := r.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]struct{})
	for _, roleID := range roleIDs {
		ids, err := r.store.VisibleItemIDs(ctx, roleID)
		if err != nil {
			return nil, err
		}
		for id := range ids {
			visible[id] = struct{}{}
		}
	}

	children := make(map[string][]Item)
	var roots []Item
	for _, item := range items {
		if item.ParentID == nil {
			roots = append(roots, item)
			continue
		}
		children[*item.ParentID] = append(children[*item.ParentID], item)
	}
	sortItems(roots)
	for _, siblings := range children {
		sortItems(siblings)
	}

	// seen guards against a corrupted parent graph; a cycle would
	// otherwise recurse forever.
	seen := make(map[string]struct{}, len(items))
	return buildNodes(roots, children, visible, seen), nil
}

func buildNodes(items []Item, children map[string][]Item, visible, seen map[string]struct{}) []*Node {
	nodes := make([]*Node, 0, len(items))
	for _, item := range items {
		if _, ok := visible[item.ID]; !ok {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		nodes = append(nodes, &Node{
			Item:     item,
			Children: buildNodes(children[item.ID], children, visible, seen),
		})
	}
	return nodes
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].Path < items[j].Path
	})
}
