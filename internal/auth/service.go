package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

const defaultTokenTTL = 8 * time.Hour

// Service is the single place callers ask "may this user do X". Wildcard
// resolution, the union of role-mediated and direct permissions, and the
// uniform login failure all live here and nowhere else.
type Service struct {
	store    Store
	issuer   *TokenIssuer
	tokenTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL overrides the session token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs the auth service.
func NewService(store Store, issuer *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{
		store:    store,
		issuer:   issuer,
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// EnsureBuiltins ensures the predefined permission catalog exists.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.EnsurePermissions(ctx, BuiltinPermissions)
}

// LoginResult carries the issued token and a user summary for the login
// response.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal Principal
}

// Login verifies credentials and issues a session token with the
// caller's permission snapshot. Every failure (unknown email, wrong
// password, soft-deleted user) yields ErrInvalidCredentials so callers
// cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if user.DeletedAt != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	principal, err := s.principalForUser(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	token, expiresAt, err := s.issuer.Issue(user.ID, principal.Permissions.Keys(), s.tokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, Principal: principal}, nil
}

// VerifyToken validates a bearer token and rebuilds the principal from
// the embedded snapshot. Roles are loaded live so menu resolution sees
// current assignments; the permission set stays the issuance snapshot.
func (s *Service) VerifyToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.store.FindUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if user.DeletedAt != nil {
		return Principal{}, ErrInvalidToken
	}
	roles, err := s.store.RolesForUser(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       roles,
		Permissions: NewPermissionSet(claims.Permissions...),
	}, nil
}

// Principal loads a user with freshly resolved roles and permissions.
func (s *Service) Principal(ctx context.Context, userID string) (Principal, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return s.principalForUser(ctx, user)
}

func (s *Service) principalForUser(ctx context.Context, user User) (Principal, error) {
	roles, err := s.store.RolesForUser(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	perms, err := s.effectivePermissions(ctx, user)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       roles,
		Permissions: perms,
	}, nil
}

// EffectivePermissions computes the union of role-mediated permissions
// and the user record's direct permissions. The wildcard at either level
// collapses the set to {*}.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) (PermissionSet, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.effectivePermissions(ctx, user)
}

func (s *Service) effectivePermissions(ctx context.Context, user User) (PermissionSet, error) {
	set := NewPermissionSet(user.DirectPermissions...)
	if set.HasWildcard() {
		return NewPermissionSet(Wildcard), nil
	}
	keys, err := s.store.PermissionKeysForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	set.Add(keys...)
	if set.HasWildcard() {
		return NewPermissionSet(Wildcard), nil
	}
	return set, nil
}

// Authorize decides whether a verified principal may proceed. An empty
// required permission means the route needs authentication only.
func (s *Service) Authorize(principal Principal, required string) error {
	if required == "" {
		return nil
	}
	if !principal.HasPermission(required) {
		return ErrPermissionDenied
	}
	return nil
}

// CreateRole registers a new role.
func (s *Service) CreateRole(ctx context.Context, key, name, description string) (Role, error) {
	key = strings.TrimSpace(key)
	name = strings.TrimSpace(name)
	if key == "" || name == "" {
		return Role{}, ErrInvalidInput
	}
	return s.store.CreateRole(ctx, Role{
		Key:         key,
		Name:        name,
		Description: strings.TrimSpace(description),
	})
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// AssignRole links a user to a role. Re-assigning is a no-op.
func (s *Service) AssignRole(ctx context.Context, userID, roleID string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return ErrInvalidInput
	}
	return s.store.AssignRole(ctx, userID, roleID)
}

// GrantPermissions adds permission keys to a role. Granting an
// already-held permission is a no-op.
func (s *Service) GrantPermissions(ctx context.Context, roleID string, keys []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return ErrInvalidInput
	}
	return s.store.GrantRolePermissions(ctx, roleID, dedupeKeys(keys))
}

// SetPermissions replaces a role's permission set.
func (s *Service) SetPermissions(ctx context.Context, roleID string, keys []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return ErrInvalidInput
	}
	return s.store.ReplaceRolePermissions(ctx, roleID, dedupeKeys(keys))
}

// UserPermissions reads the live effective permission keys for
// administration views.
func (s *Service) UserPermissions(ctx context.Context, userID string) ([]string, error) {
	set, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return set.Keys(), nil
}

func dedupeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
