package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lexdesk.org/internal/auth"
	"lexdesk.org/internal/menu"
)

type visibilityRow struct {
	MenuItemID string `json:"menu_item_id"`
	Visible    bool   `json:"is_visible"`
}

type setVisibilityRequest struct {
	Items []visibilityRow `json:"items"`
}

// handleMyMenu returns the caller's navigation tree: the union of the
// caller's role visibilities, resolved top-down.
func (a *API) handleMyMenu(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	nodes, err := a.menu.EffectiveMenu(r.Context(), principal.RoleIDs())
	if err != nil {
		handleMenuError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"menu": nodes})
}

func (a *API) handleMenuRoleResource(w http.ResponseWriter, r *http.Request) {
	roleID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/menu/roles/"), "/")
	if roleID == "" || strings.Contains(roleID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.handleRoleMenu(w, r, roleID)
	case http.MethodPut:
		a.handleSetRoleMenu(w, r, roleID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleRoleMenu(w http.ResponseWriter, r *http.Request, roleID string) {
	if !a.ensurePermission(w, r, auth.PermMenuManage) {
		return
	}
	nodes, err := a.menu.VisibleMenu(r.Context(), roleID)
	if err != nil {
		handleMenuError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role_id": roleID,
		"menu":    nodes,
	})
}

func (a *API) handleSetRoleMenu(w http.ResponseWriter, r *http.Request, roleID string) {
	if !a.ensurePermission(w, r, auth.PermMenuManage) {
		return
	}
	var req setVisibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows := make([]menu.Visibility, 0, len(req.Items))
	for _, item := range req.Items {
		id := strings.TrimSpace(item.MenuItemID)
		if id == "" {
			writeError(w, r, http.StatusBadRequest, "menu_item_id is required")
			return
		}
		rows = append(rows, menu.Visibility{ItemID: id, Visible: item.Visible})
	}

	if err := a.menu.SetRoleVisibility(r.Context(), roleID, rows); err != nil {
		handleMenuError(w, r, err)
		return
	}
	a.audit(r, "role", roleID, "menu_visibility_update", map[string]any{
		"count": fmt.Sprintf("%d", len(rows)),
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleMenuError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, menu.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, menu.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
