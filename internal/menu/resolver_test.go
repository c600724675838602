package menu

import (
	"context"
	"testing"
)

type stubStore struct {
	items   []Item
	visible map[string]map[string]struct{} // roleID -> item ids
}

func (s *stubStore) ListItems(ctx context.Context) ([]Item, error) {
	return s.items, nil
}

func (s *stubStore) CreateItem(ctx context.Context, item Item) (Item, error) {
	s.items = append(s.items, item)
	return item, nil
}

func (s *stubStore) VisibleItemIDs(ctx context.Context, roleID string) (map[string]struct{}, error) {
	ids := s.visible[roleID]
	out := make(map[string]struct{}, len(ids))
	for id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *stubStore) ReplaceRoleVisibility(ctx context.Context, roleID string, rows []Visibility) error {
	ids := make(map[string]struct{})
	for _, row := range rows {
		if row.Visible {
			ids[row.ItemID] = struct{}{}
		}
	}
	if s.visible == nil {
		s.visible = make(map[string]map[string]struct{})
	}
	s.visible[roleID] = ids
	return nil
}

func (s *stubStore) SeedFullVisibility(ctx context.Context, roleID string) error {
	ids := make(map[string]struct{})
	for _, item := range s.items {
		ids[item.ID] = struct{}{}
	}
	if s.visible == nil {
		s.visible = make(map[string]map[string]struct{})
	}
	s.visible[roleID] = ids
	return nil
}

func ptr(s string) *string { return &s }

// officeMenu models the navigation of the office backend: a dashboard,
// cases and clients at top level, a finance section with two children,
// and the user administration screen.
func officeMenu() []Item {
	return []Item{
		{ID: "m-root", Path: "/", Label: "Dashboard", SortOrder: 0},
		{ID: "m-cases", Path: "/cases", Label: "Cases", SortOrder: 1},
		{ID: "m-clients", Path: "/clients", Label: "Clients", SortOrder: 2},
		{ID: "m-finance", Path: "/finance", Label: "Finance", SortOrder: 3},
		{ID: "m-cash", Path: "/finance/cash", Label: "Cash book", SortOrder: 0, ParentID: ptr("m-finance")},
		{ID: "m-invoices", Path: "/finance/invoices", Label: "Invoices", SortOrder: 1, ParentID: ptr("m-finance")},
		{ID: "m-users", Path: "/users", Label: "Users", SortOrder: 4},
	}
}

func newTestResolver(t *testing.T, store Store) *Resolver {
	t.Helper()
	resolver, err := NewResolver(store)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver
}

func paths(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Path)
	}
	return out
}

func TestVisibleMenuDefaultDeny(t *testing.T) {
	store := &stubStore{
		items: officeMenu(),
		visible: map[string]map[string]struct{}{
			"lawyer": {"m-root": {}, "m-cases": {}, "m-clients": {}},
		},
	}
	resolver := newTestResolver(t, store)

	nodes, err := resolver.VisibleMenu(context.Background(), "lawyer")
	if err != nil {
		t.Fatalf("VisibleMenu: %v", err)
	}
	got := paths(nodes)
	want := []string{"/", "/cases", "/clients"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v in sort order, got %v", want, got)
		}
	}
}

func TestVisibleMenuParentGatesChild(t *testing.T) {
	// Finance itself is hidden; its children stay hidden even though
	// their own rows say visible.
	store := &stubStore{
		items: officeMenu(),
		visible: map[string]map[string]struct{}{
			"paralegal": {"m-root": {}, "m-cash": {}, "m-invoices": {}},
		},
	}
	resolver := newTestResolver(t, store)

	nodes, err := resolver.VisibleMenu(context.Background(), "paralegal")
	if err != nil {
		t.Fatalf("VisibleMenu: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Path != "/" {
		t.Fatalf("expected only dashboard, got %v", paths(nodes))
	}
}

func TestVisibleMenuIncludesChildrenInOrder(t *testing.T) {
	store := &stubStore{
		items: officeMenu(),
		visible: map[string]map[string]struct{}{
			"accountant": {"m-finance": {}, "m-invoices": {}, "m-cash": {}},
		},
	}
	resolver := newTestResolver(t, store)

	nodes, err := resolver.VisibleMenu(context.Background(), "accountant")
	if err != nil {
		t.Fatalf("VisibleMenu: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Path != "/finance" {
		t.Fatalf("expected finance root, got %v", paths(nodes))
	}
	kids := paths(nodes[0].Children)
	if len(kids) != 2 || kids[0] != "/finance/cash" || kids[1] != "/finance/invoices" {
		t.Fatalf("unexpected children: %v", kids)
	}
}

func TestEffectiveMenuUnionsRoles(t *testing.T) {
	// Role A grants only the child; role B grants only the parent. The
	// union makes the child reachable, which neither role alone does.
	store := &stubStore{
		items: officeMenu(),
		visible: map[string]map[string]struct{}{
			"role-a": {"m-cash": {}},
			"role-b": {"m-finance": {}},
		},
	}
	resolver := newTestResolver(t, store)

	aloneA, err := resolver.VisibleMenu(context.Background(), "role-a")
	if err != nil {
		t.Fatalf("VisibleMenu role-a: %v", err)
	}
	if len(aloneA) != 0 {
		t.Fatalf("role-a alone should see nothing, got %v", paths(aloneA))
	}

	union, err := resolver.EffectiveMenu(context.Background(), []string{"role-a", "role-b"})
	if err != nil {
		t.Fatalf("EffectiveMenu: %v", err)
	}
	if len(union) != 1 || union[0].Path != "/finance" {
		t.Fatalf("expected finance, got %v", paths(union))
	}
	kids := paths(union[0].Children)
	if len(kids) != 1 || kids[0] != "/finance/cash" {
		t.Fatalf("expected cash child, got %v", kids)
	}
}

func TestEffectiveMenuNoRoles(t *testing.T) {
	resolver := newTestResolver(t, &stubStore{items: officeMenu()})
	nodes, err := resolver.EffectiveMenu(context.Background(), nil)
	if err != nil {
		t.Fatalf("EffectiveMenu: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected empty menu, got %v", paths(nodes))
	}
}

func TestGrantFullVisibility(t *testing.T) {
	store := &stubStore{items: officeMenu()}
	resolver := newTestResolver(t, store)

	if err := resolver.GrantFullVisibility(context.Background(), "admin"); err != nil {
		t.Fatalf("GrantFullVisibility: %v", err)
	}
	nodes, err := resolver.VisibleMenu(context.Background(), "admin")
	if err != nil {
		t.Fatalf("VisibleMenu: %v", err)
	}
	top := paths(nodes)
	want := []string{"/", "/cases", "/clients", "/finance", "/users"}
	if len(top) != len(want) {
		t.Fatalf("expected %v, got %v", want, top)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, top)
		}
	}
}
