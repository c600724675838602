package menu

import "context"

// Item is a node in the navigation tree. Siblings render in ascending
// SortOrder; a nil ParentID marks a root-level item.
type Item struct {
	ID        string  `json:"id"`
	Path      string  `json:"path"`
	Label     string  `json:"label"`
	Icon      string  `json:"icon,omitempty"`
	SortOrder int     `json:"sort_order"`
	ParentID  *string `json:"parent_id,omitempty"`
}

// Node is an item with its visible children resolved.
type Node struct {
	Item
	Children []*Node `json:"children,omitempty"`
}

// Visibility is one role's flag for one item. Absence of a row means
// hidden; new items never leak to restricted roles by default.
type Visibility struct {
	RoleID  string `json:"role_id"`
	ItemID  string `json:"menu_item_id"`
	Visible bool   `json:"is_visible"`
}

// Store describes persistence for menu items and per-role visibility.
type Store interface {
	ListItems(ctx context.Context) ([]Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	// VisibleItemIDs returns the ids of items whose visibility row for
	// the role exists and is true.
	VisibleItemIDs(ctx context.Context, roleID string) (map[string]struct{}, error)
	// ReplaceRoleVisibility rewrites the role's rows in one transaction.
	ReplaceRoleVisibility(ctx context.Context, roleID string, rows []Visibility) error
	// SeedFullVisibility inserts a visible row for every existing item,
	// the convention for administrative roles.
	SeedFullVisibility(ctx context.Context, roleID string) error
}
