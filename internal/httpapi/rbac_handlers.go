package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"lexdesk.org/internal/auth"
)

type createRoleRequest struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type rolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleCreateRole(w, r)
	case http.MethodGet:
		a.handleListRoles(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermUserManage) {
		return
	}
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.auth.CreateRole(r.Context(), req.Key, req.Name, req.Description)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r, "role", role.ID, "create", map[string]any{
		"key":  role.Key,
		"name": role.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermUserManage) {
		return
	}
	roles, err := a.auth.ListRoles(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if roles == nil {
		roles = []auth.Role{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// handleRoleResource serves /v1/roles/{id}/permissions.
func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "permissions" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	roleID := parts[0]

	switch r.Method {
	case http.MethodPut:
		a.handleSetRolePermissions(w, r, roleID)
	case http.MethodPost:
		a.handleGrantRolePermissions(w, r, roleID)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodPut)
	}
}

func (a *API) handleSetRolePermissions(w http.ResponseWriter, r *http.Request, roleID string) {
	if !a.ensurePermission(w, r, auth.PermUserManage) {
		return
	}
	var req rolePermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.SetPermissions(r.Context(), roleID, req.Permissions); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r, "role", roleID, "permissions_replace", map[string]any{
		"count": fmt.Sprintf("%d", len(req.Permissions)),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGrantRolePermissions(w http.ResponseWriter, r *http.Request, roleID string) {
	if !a.ensurePermission(w, r, auth.PermUserManage) {
		return
	}
	var req rolePermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.GrantPermissions(r.Context(), roleID, req.Permissions); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r, "role", roleID, "permissions_grant", map[string]any{
		"keys": strings.Join(req.Permissions, ","),
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleUserResource serves /v1/users/{id}/roles and
// /v1/users/{id}/permissions.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	userID := parts[0]

	switch parts[1] {
	case "roles":
		a.handleAssignUserRole(w, r, userID)
	case "permissions":
		a.handleUserPermissions(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleAssignUserRole(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermission(w, r, auth.PermUserManage) {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.AssignRole(r.Context(), userID, req.RoleID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(r, "user", userID, "role_assign", map[string]any{
		"role_id": req.RoleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermUserManage) {
		return
	}
	keys, err := a.auth.UserPermissions(r.Context(), userID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": keys,
	})
}
