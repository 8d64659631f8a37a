package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/testutil"
	"github.com/medtrack/clinic-service/internal/users"
)

type serviceFixture struct {
	service   *auth.Service
	provider  *testutil.MockIdentityProvider
	publisher *testutil.MockPublisher
	watcher   *auth.Watcher
	repo      *users.Repository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	verifier, key := testutil.CreateTestVerifier(t)
	provider := testutil.NewMockIdentityProvider()
	provider.IssueAccessToken = func(accountID string) string {
		return testutil.GenerateDoctorToken(t, key, accountID)
	}

	repo := users.NewRepository(docstore.NewMemoryStore())
	publisher := testutil.NewMockPublisher()
	watcher := auth.NewWatcher()
	service := auth.NewService(provider, verifier, repo, watcher, publisher, nil)

	return &serviceFixture{
		service:   service,
		provider:  provider,
		publisher: publisher,
		watcher:   watcher,
		repo:      repo,
	}
}

func doctorRegistration() *auth.RegisterRequest {
	return &auth.RegisterRequest{
		Email:          "ayse@example.com",
		Password:       "gizli123",
		FirstName:      "Ayşe",
		LastName:       "Yılmaz",
		Role:           users.RoleDoctor,
		Specialization: "Dahiliye",
	}
}

func TestRegister_Success(t *testing.T) {
	f := newServiceFixture(t)

	user, err := f.service.Register(context.Background(), doctorRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.AuthID == "" {
		t.Error("Expected identity provider id on the record")
	}
	if user.Role != users.RoleDoctor {
		t.Errorf("Expected role doktor, got %s", user.Role)
	}

	f.publisher.AssertEventPublished(t, messaging.EventUserRegistered)
	event := f.publisher.GetLastEventByKey(messaging.EventUserRegistered)
	data, ok := event.EventData.(messaging.UserRegisteredEvent)
	if !ok {
		t.Fatalf("Unexpected event payload type %T", event.EventData)
	}
	if data.Data.Email != "ayse@example.com" {
		t.Errorf("Event email %q", data.Data.Email)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newServiceFixture(t)

	weak := doctorRegistration()
	weak.Password = "123"
	if _, err := f.service.Register(context.Background(), weak); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}

	badEmail := doctorRegistration()
	badEmail.Email = "not-an-email"
	if _, err := f.service.Register(context.Background(), badEmail); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}

	badRole := doctorRegistration()
	badRole.Role = "admin"
	if _, err := f.service.Register(context.Background(), badRole); !errors.Is(err, users.ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.service.Register(ctx, doctorRegistration()); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}
	_, err := f.service.Register(ctx, doctorRegistration())
	if !errors.Is(err, auth.ErrEmailInUse) {
		t.Errorf("Expected ErrEmailInUse, got %v", err)
	}
	if auth.LocalizedMessage(err) != auth.MsgEmailInUse {
		t.Errorf("Unexpected localized message %q", auth.LocalizedMessage(err))
	}
}

func TestRegister_RollbackOnRoleFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.provider.AssignRoleErr = auth.ErrKeycloakRequest

	_, err := f.service.Register(context.Background(), doctorRegistration())
	if !errors.Is(err, auth.ErrKeycloakRequest) {
		t.Fatalf("Expected role assignment failure to surface, got %v", err)
	}
	if len(f.provider.DeletedUsers) != 1 {
		t.Fatalf("Expected the provider account rolled back, deleted: %v", f.provider.DeletedUsers)
	}
}

func TestRegister_RollbackOnRecordFailure(t *testing.T) {
	f := newServiceFixture(t)

	req := doctorRegistration()
	req.FirstName = ""
	_, err := f.service.Register(context.Background(), req)
	if !errors.Is(err, users.ErrMissingFirstName) {
		t.Fatalf("Expected record validation failure, got %v", err)
	}
	if len(f.provider.DeletedUsers) != 1 {
		t.Errorf("Expected the provider account rolled back, deleted: %v", f.provider.DeletedUsers)
	}
}

func TestLogin_Success(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.service.Register(ctx, doctorRegistration()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	var notified *users.User
	f.watcher.Subscribe(func(u *users.User) { notified = u })

	result, err := f.service.Login(ctx, "ayse@example.com", "gizli123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Tokens == nil || result.Tokens.AccessToken == "" {
		t.Error("Expected tokens in the result")
	}
	if result.User == nil || result.User.Email != "ayse@example.com" {
		t.Errorf("Expected resolved user record, got %+v", result.User)
	}
	if notified == nil || notified.Email != "ayse@example.com" {
		t.Errorf("Expected session watcher notified with the user, got %+v", notified)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.service.Register(ctx, doctorRegistration()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := f.service.Login(ctx, "ayse@example.com", "yanlis-sifre")
	if !errors.Is(err, auth.ErrWrongCredentials) {
		t.Fatalf("Expected ErrWrongCredentials, got %v", err)
	}
	if auth.LocalizedMessage(err) != auth.MsgWrongCredentials {
		t.Errorf("Unexpected localized message %q", auth.LocalizedMessage(err))
	}
}

func TestLogin_Validation(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.service.Login(context.Background(), "no-at-sign", "pass"); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}
	if _, err := f.service.Login(context.Background(), "a@b.com", ""); !errors.Is(err, auth.ErrMissingPassword) {
		t.Errorf("Expected ErrMissingPassword, got %v", err)
	}
}

func TestLogin_MissingRecord(t *testing.T) {
	f := newServiceFixture(t)

	// Account exists in the identity provider but has no application record.
	authID, err := f.provider.CreateUser(auth.KeycloakUser{Username: "ghost@example.com", Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := f.provider.SetPassword(authID, "gizli123", false); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}

	_, err = f.service.Login(context.Background(), "ghost@example.com", "gizli123")
	if !errors.Is(err, auth.ErrUserDataMissing) {
		t.Fatalf("Expected ErrUserDataMissing, got %v", err)
	}
	if auth.LocalizedMessage(err) != auth.MsgUserDataMissing {
		t.Errorf("Unexpected localized message %q", auth.LocalizedMessage(err))
	}
}

func TestLogout_RevokesAndNotifies(t *testing.T) {
	f := newServiceFixture(t)

	cleared := false
	f.watcher.Subscribe(func(u *users.User) {
		if u == nil {
			cleared = true
		}
	})

	if err := f.service.Logout(context.Background(), "refresh-token-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if len(f.provider.RevokedTokens) != 1 || f.provider.RevokedTokens[0] != "refresh-token-1" {
		t.Errorf("Expected refresh token revoked, got %v", f.provider.RevokedTokens)
	}
	if !cleared {
		t.Error("Expected session watcher notified with nil on logout")
	}
}

func TestLocalizedMessage_Fallback(t *testing.T) {
	if got := auth.LocalizedMessage(errors.New("boom")); got != auth.MsgDefault {
		t.Errorf("Expected generic fallback, got %q", got)
	}
}
