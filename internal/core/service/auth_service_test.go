package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/policy"
	"github.com/wareable/user-service/internal/core/ports"
	"github.com/wareable/user-service/internal/infrastructure/security/password"
	"github.com/wareable/user-service/internal/infrastructure/security/token"
)

type authFixture struct {
	svc     *AuthService
	users   *stubUserRepo
	roles   *stubRoleRepo
	issuer  *stubIssuer
	limiter *stubLimiter
	sink    *recordingSink
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	f := &authFixture{
		users:   newStubUserRepo(),
		roles:   seededRoles(),
		issuer:  &stubIssuer{},
		limiter: newStubLimiter(),
		sink:    &recordingSink{},
	}
	f.svc = NewAuthService(f.users, NewRoleResolver(f.roles), hasher, f.issuer, f.limiter, f.sink, zerolog.Nop())
	return f
}

func (f *authFixture) signup(t *testing.T, username, email, pw string, roles []string) {
	t.Helper()
	if _, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: username, Email: email, Password: pw, Roles: roles}); err != nil {
		t.Fatalf("signup %s failed: %v", username, err)
	}
}

// ---------------------------------------------------------------------------
// Signup
// ---------------------------------------------------------------------------

func TestAuthService_Signup_DefaultRole(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "alice", Email: "alice@example.com", Password: "pass123"})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if res.Message != "User registered successfully!" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	user := f.users.only(t)
	if !reflect.DeepEqual(user.Roles, []domain.RoleName{domain.RoleUser}) {
		t.Fatalf("expected exactly {USER}, got %v", user.Roles)
	}
	if user.PasswordHash == "pass123" || user.PasswordHash == "" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
}

func TestAuthService_Signup_RequestedRoles(t *testing.T) {
	f := newAuthFixture(t)

	f.signup(t, "bob", "bob@example.com", "pass123", []string{"admin", "mod", "bogus"})

	want := []domain.RoleName{domain.RoleUser, domain.RoleModerator, domain.RoleAdmin}
	if got := f.users.only(t).Roles; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAuthService_Signup_RoleSetNeverEmpty(t *testing.T) {
	for _, roles := range [][]string{nil, {}, {""}, {"nobody"}, {"admin"}} {
		f := newAuthFixture(t)
		f.signup(t, "carol", "carol@example.com", "pass123", roles)
		if len(f.users.only(t).Roles) == 0 {
			t.Fatalf("role set empty for request %v", roles)
		}
	}
}

func TestAuthService_Signup_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "dave", "dave@example.com", "pass123", nil)

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "dave", Email: "other@example.com", Password: "pass123"})
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "erin", "erin@example.com", "pass123", nil)

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "erin2", Email: "erin@example.com", Password: "pass123"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_Signup_InvalidInput(t *testing.T) {
	f := newAuthFixture(t)

	for _, in := range []ports.SignupInput{
		{Email: "a@example.com", Password: "pass123"},
		{Username: "a", Password: "pass123"},
		{Username: "a", Email: "a@example.com"},
		{Username: "  ", Email: "a@example.com", Password: "pass123"},
	} {
		if _, err := f.svc.Signup(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
	if f.users.saves != 0 {
		t.Fatalf("no user should be saved")
	}
}

func TestAuthService_Signup_MissingSeedRole(t *testing.T) {
	f := newAuthFixture(t)
	delete(f.roles.seeded, domain.RoleAdmin)

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "frank", Email: "frank@example.com", Password: "pass123", Roles: []string{"admin"}})
	if !errors.Is(err, domain.ErrRoleCatalogNotSeeded) {
		t.Fatalf("expected ErrRoleCatalogNotSeeded, got %v", err)
	}
	if f.users.saves != 0 {
		t.Fatalf("user must not be saved when roles cannot be resolved")
	}
}

func TestAuthService_Signup_DependencyUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.users.existsErr = domain.ErrDependencyUnavailable

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "gina", Email: "gina@example.com", Password: "pass123"})
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

// The store's unique constraint is the authoritative guard: a write that
// races past the existence checks surfaces as the same duplicate error.
func TestAuthService_Signup_StorageConstraintTranslated(t *testing.T) {
	for _, want := range []error{domain.ErrDuplicateUsername, domain.ErrDuplicateEmail} {
		f := newAuthFixture(t)
		f.users.saveErr = want

		_, err := f.svc.Signup(context.Background(), ports.SignupInput{Username: "hank", Email: "hank@example.com", Password: "pass123"})
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthService_Signup_ConcurrentSameUsername(t *testing.T) {
	f := newAuthFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Signup(context.Background(), ports.SignupInput{
				Username: "ivy",
				Email:    "ivy" + strings.Repeat("x", i) + "@example.com",
				Password: "pass123",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateUsername):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful signup, got %d", ok)
	}
}

func TestAuthService_Signup_DoesNotIssueToken(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "jack", "jack@example.com", "pass123", nil)

	if len(f.issuer.issued) != 0 {
		t.Fatalf("signup must not issue a token")
	}
}

func TestAuthService_Signup_NeverLogsPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "kate", "kate@example.com", "Sup3rSecret!", nil)

	for _, e := range f.sink.all() {
		if strings.Contains(e, "Sup3rSecret!") || strings.Contains(e, "$2a$") {
			t.Fatalf("sink entry leaks password material: %q", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Signin
// ---------------------------------------------------------------------------

func TestAuthService_Signin_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "liam", "liam@example.com", "s3cret", []string{"mod"})

	res, err := f.svc.Signin(context.Background(), "liam", "s3cret")
	if err != nil {
		t.Fatalf("Signin returned error: %v", err)
	}
	if res.Token != "token-for-liam" || res.TokenType != "Bearer" {
		t.Fatalf("unexpected token: %+v", res)
	}
	if res.Profile.Username != "liam" || res.Profile.Email != "liam@example.com" || res.Profile.ID == "" {
		t.Fatalf("unexpected profile: %+v", res.Profile)
	}
	if !reflect.DeepEqual(res.Profile.Roles, []string{"MODERATOR"}) {
		t.Fatalf("unexpected roles: %v", res.Profile.Roles)
	}
	if len(f.limiter.resets) != 1 || f.limiter.resets[0] != "liam" {
		t.Fatalf("expected failure counter reset, got %v", f.limiter.resets)
	}
}

func TestAuthService_Signin_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "mia", "mia@example.com", "goodpass", nil)

	_, wrongPassword := f.svc.Signin(context.Background(), "mia", "badpass")
	_, unknownUser := f.svc.Signin(context.Background(), "ghost", "goodpass")

	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", wrongPassword)
	}
	if wrongPassword != unknownUser {
		t.Fatalf("errors differ: %v vs %v", wrongPassword, unknownUser)
	}
	if f.limiter.failures["mia"] != 1 || f.limiter.failures["ghost"] != 1 {
		t.Fatalf("expected failures recorded for both, got %v", f.limiter.failures)
	}
	if len(f.issuer.issued) != 0 {
		t.Fatalf("no token must be issued on failure")
	}
}

func TestAuthService_Signin_EmptyCredentials(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.Signin(context.Background(), "", "pw"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Signin(context.Background(), "user", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Signin_Locked(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "noah", "noah@example.com", "pass123", nil)
	f.limiter.locked = true

	if _, err := f.svc.Signin(context.Background(), "noah", "pass123"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_Signin_LimiterFailureFailsOpen(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "olga", "olga@example.com", "pass123", nil)
	f.limiter.lockedErr = errors.New("redis down")

	if _, err := f.svc.Signin(context.Background(), "olga", "pass123"); err != nil {
		t.Fatalf("expected signin to proceed, got %v", err)
	}
}

func TestAuthService_Signin_WithoutLimiter(t *testing.T) {
	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	users := newStubUserRepo()
	svc := NewAuthService(users, NewRoleResolver(seededRoles()), hasher, &stubIssuer{}, nil, nil, zerolog.Nop())

	if _, err := svc.Signup(context.Background(), ports.SignupInput{Username: "pia", Email: "pia@example.com", Password: "pass123"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signin(context.Background(), "pia", "pass123"); err != nil {
		t.Fatalf("signin: %v", err)
	}
	if _, err := svc.Signin(context.Background(), "pia", "nope"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Signin_StoreUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.users.findErr = domain.ErrDependencyUnavailable

	_, err := f.svc.Signin(context.Background(), "quinn", "pass123")
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestAuthService_Signin_IssuerFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "rita", "rita@example.com", "pass123", nil)
	f.issuer.err = errors.New("sign failed")

	if _, err := f.svc.Signin(context.Background(), "rita", "pass123"); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.limiter.resets) != 0 {
		t.Fatalf("failure counter must not be reset when no token was issued")
	}
}

func TestAuthService_Signin_LogsToSink(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "sam", "sam@example.com", "pass123", nil)

	if _, err := f.svc.Signin(context.Background(), "sam", "pass123"); err != nil {
		t.Fatalf("signin: %v", err)
	}

	entries := strings.Join(f.sink.all(), "\n")
	for _, want := range []string{"API REQUEST: /signup by sam", "API REQUEST: /signin by sam", "DB TRANSACTION: Authenticated user sam"} {
		if !strings.Contains(entries, want) {
			t.Fatalf("missing sink entry %q in:\n%s", want, entries)
		}
	}
	if strings.Contains(entries, "pass123") {
		t.Fatalf("sink leaks password")
	}
}

// ---------------------------------------------------------------------------
// End to end with the real token issuer and permission policy
// ---------------------------------------------------------------------------

func TestAuthService_SigninTokenCarriesIdentity(t *testing.T) {
	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	jwtSvc, err := token.NewJWT(token.Config{Secret: "secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	users := newStubUserRepo()
	svc := NewAuthService(users, NewRoleResolver(seededRoles()), hasher, jwtSvc, nil, nil, zerolog.Nop())

	if _, err := svc.Signup(context.Background(), ports.SignupInput{Username: "tara", Email: "tara@example.com", Password: "pass123", Roles: []string{"admin"}}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	res, err := svc.Signin(context.Background(), "tara", "pass123")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	claims, err := jwtSvc.Validate(res.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	stored := users.only(t)
	if claims.UserID != stored.ID || claims.Email != stored.Email || claims.Subject != "tara" {
		t.Fatalf("claims do not match identity: %+v", claims)
	}
	if !reflect.DeepEqual(claims.Roles, []string{"ADMIN"}) {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
	if !res.ExpiresAt.Equal(claims.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v vs %v", res.ExpiresAt, claims.ExpiresAt)
	}
}

func TestScenario_AliceDefaultRolePermissions(t *testing.T) {
	f := newAuthFixture(t)
	p := policy.New(map[string][]string{
		"ADMIN": {"read", "write", "delete"},
		"USER":  {"read"},
	})

	f.signup(t, "alice", "alice@example.com", "pass123", nil)
	alice := f.users.only(t)
	if !reflect.DeepEqual(alice.Roles, []domain.RoleName{domain.RoleUser}) {
		t.Fatalf("expected USER, got %v", alice.Roles)
	}

	role := string(alice.Roles[0])
	if p.HasPermission(role, "delete") {
		t.Fatalf("USER must not have delete")
	}
	if !p.HasPermission(role, "read") {
		t.Fatalf("USER must have read")
	}
}
