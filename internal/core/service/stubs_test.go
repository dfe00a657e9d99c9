package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/wareable/user-service/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory user store with storage-level uniqueness
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int

	findErr   error // returned by FindByUsername / FindByID when set
	existsErr error // returned by ExistsBy* when set
	saveErr   error // returned by Save when set
	saves     int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]domain.RoleName(nil), u.Roles...)
	return &clone
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, u := range r.byID {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// Save mirrors the unique indexes of the real store.
func (r *stubUserRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	for id, u := range r.byID {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return nil, domain.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	stored := cloneUser(user)
	if stored.ID == "" {
		r.nextID++
		stored.ID = fmt.Sprintf("user-%d", r.nextID)
	}
	r.byID[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) only(t interface{ Fatalf(string, ...any) }) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byID) != 1 {
		t.Fatalf("expected exactly one stored user, got %d", len(r.byID))
	}
	for _, u := range r.byID {
		return cloneUser(u)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Role catalog
// ---------------------------------------------------------------------------

type stubRoleRepo struct {
	mu      sync.Mutex
	seeded  map[domain.RoleName]bool
	err     error
	lookups []domain.RoleName
}

func seededRoles() *stubRoleRepo {
	r := &stubRoleRepo{seeded: make(map[domain.RoleName]bool)}
	for _, name := range domain.AllRoles() {
		r.seeded[name] = true
	}
	return r
}

func (r *stubRoleRepo) FindByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, name)
	if r.err != nil {
		return nil, r.err
	}
	if !r.seeded[name] {
		return nil, domain.ErrRoleCatalogNotSeeded
	}
	return &domain.Role{ID: "role-" + string(name), Name: name}, nil
}

// ---------------------------------------------------------------------------
// Token issuer, limiter and sink
// ---------------------------------------------------------------------------

type stubIssuer struct {
	err    error
	issued []*domain.User
}

func (s *stubIssuer) Issue(user *domain.User) (string, domain.Claims, error) {
	if s.err != nil {
		return "", domain.Claims{}, s.err
	}
	s.issued = append(s.issued, cloneUser(user))
	return "token-for-" + user.Username, domain.Claims{Subject: user.Username, UserID: user.ID, Email: user.Email, Roles: user.RoleLabels()}, nil
}

type stubLimiter struct {
	locked    bool
	lockedErr error
	failures  map[string]int
	resets    []string
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{failures: make(map[string]int)}
}

func (l *stubLimiter) Locked(_ context.Context, _ string) (bool, error) {
	return l.locked, l.lockedErr
}

func (l *stubLimiter) RecordFailure(_ context.Context, key string) error {
	l.failures[key]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	l.resets = append(l.resets, key)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []string
}

func (s *recordingSink) Append(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}
