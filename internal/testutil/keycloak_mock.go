package testutil

import (
	"fmt"
	"sync"

	"github.com/medtrack/clinic-service/internal/auth"
)

// MockIdentityProvider is an in-memory stand-in for Keycloak. Accounts
// are keyed by username; Login succeeds when the password matches.
type MockIdentityProvider struct {
	mu       sync.Mutex
	nextID   int
	accounts map[string]*mockAccount

	// Error overrides for failure-path tests.
	LoginErr       error
	CreateErr      error
	SetPasswordErr error
	AssignRoleErr  error

	// IssueAccessToken, when set, mints the access token returned by
	// Login. Tests that run tokens through a real verifier use this to
	// return a properly signed JWT.
	IssueAccessToken func(accountID string) string

	DeletedUsers  []string
	RevokedTokens []string
}

type mockAccount struct {
	id       string
	password string
	roles    []string
}

func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{accounts: make(map[string]*mockAccount)}
}

func (m *MockIdentityProvider) Login(username, password string) (*auth.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoginErr != nil {
		return nil, m.LoginErr
	}
	acct, ok := m.accounts[username]
	if !ok || acct.password != password {
		return nil, auth.ErrWrongCredentials
	}
	access := "access-" + acct.id
	if m.IssueAccessToken != nil {
		access = m.IssueAccessToken(acct.id)
	}
	return &auth.TokenPair{
		AccessToken:  access,
		RefreshToken: "refresh-" + acct.id,
		ExpiresIn:    300,
	}, nil
}

func (m *MockIdentityProvider) Logout(refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokedTokens = append(m.RevokedTokens, refreshToken)
	return nil
}

func (m *MockIdentityProvider) CreateUser(user auth.KeycloakUser) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if _, exists := m.accounts[user.Username]; exists {
		return "", auth.ErrEmailInUse
	}
	m.nextID++
	id := fmt.Sprintf("kc-user-%d", m.nextID)
	m.accounts[user.Username] = &mockAccount{id: id}
	return id, nil
}

func (m *MockIdentityProvider) SetPassword(userID, password string, temporary bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetPasswordErr != nil {
		return m.SetPasswordErr
	}
	for _, acct := range m.accounts {
		if acct.id == userID {
			acct.password = password
			return nil
		}
	}
	return auth.ErrKeycloakRequest
}

func (m *MockIdentityProvider) AssignRealmRole(userID, roleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AssignRoleErr != nil {
		return m.AssignRoleErr
	}
	for _, acct := range m.accounts {
		if acct.id == userID {
			acct.roles = append(acct.roles, roleName)
			return nil
		}
	}
	return auth.ErrKeycloakRequest
}

func (m *MockIdentityProvider) DeleteUser(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeletedUsers = append(m.DeletedUsers, userID)
	for username, acct := range m.accounts {
		if acct.id == userID {
			delete(m.accounts, username)
			return nil
		}
	}
	return nil
}

var _ auth.IdentityProvider = (*MockIdentityProvider)(nil)
