package obs

import "strings"

// CanonicalPath collapses per-entity path segments so metric labels stay
// low-cardinality. Unknown paths pass through unchanged.
func CanonicalPath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "/"
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "users" &&
		(parts[3] == "roles" || parts[3] == "permissions"):
		return "/v1/users/:id/" + parts[3]
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "roles" && parts[3] == "permissions":
		return "/v1/roles/:id/permissions"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "menu" && parts[2] == "roles":
		return "/v1/menu/roles/:id"
	}
	return path
}
