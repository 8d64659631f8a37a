package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	ErrKeycloakRequest   = errors.New("keycloak request failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRoleNotFound      = errors.New("role not found")
	ErrInvalidResponse   = errors.New("invalid response from keycloak")
	ErrWrongCredentials  = errors.New("invalid credentials")
	ErrEmailInUse        = errors.New("email already in use")
	ErrWeakPassword      = errors.New("password does not meet policy")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrIdentityUnreached = errors.New("identity provider unreachable")
)

// TokenPair is the result of a successful password grant.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// KeycloakClient handles both administrative operations and the
// resource-owner password flow against a Keycloak realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	tokenMux    sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// KeycloakUser represents a user in Keycloak
type KeycloakUser struct {
	ID         string              `json:"id,omitempty"`
	Username   string              `json:"username"`
	Email      string              `json:"email"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Enabled    bool                `json:"enabled"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// KeycloakRole represents a realm role in Keycloak
type KeycloakRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PasswordReset represents password reset request
type PasswordReset struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// IdentityProvider is the surface the auth service needs from Keycloak.
// It exists so tests can substitute a mock.
type IdentityProvider interface {
	Login(username, password string) (*TokenPair, error)
	Logout(refreshToken string) error
	CreateUser(user KeycloakUser) (string, error)
	SetPassword(userID, password string, temporary bool) error
	AssignRealmRole(userID, roleName string) error
	DeleteUser(userID string) error
}

var _ IdentityProvider = (*KeycloakClient)(nil)

// NewKeycloakClient creates a new Keycloak client from environment
// configuration.
func NewKeycloakClient() (*KeycloakClient, error) {
	baseURL := os.Getenv("KEYCLOAK_BASE_URL")
	realm := os.Getenv("KEYCLOAK_REALM")
	clientID := os.Getenv("KEYCLOAK_CLIENT_ID")
	clientSecret := os.Getenv("KEYCLOAK_CLIENT_SECRET")

	if baseURL == "" || realm == "" || clientID == "" || clientSecret == "" {
		return nil, errors.New("missing required Keycloak configuration")
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	return &KeycloakClient{
		baseURL:      baseURL,
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (k *KeycloakClient) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)
}

// Login performs the resource-owner password grant for an end user.
func (k *KeycloakClient) Login(username, password string) (*TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)
	data.Set("username", username)
	data.Set("password", password)

	resp, err := k.httpClient.PostForm(k.tokenURL(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnreached, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyTokenError(resp)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &pair, nil
}

// Logout revokes the user's refresh token.
func (k *KeycloakClient) Logout(refreshToken string) error {
	logoutURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)
	data.Set("refresh_token", refreshToken)

	resp, err := k.httpClient.PostForm(logoutURL, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIdentityUnreached, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to revoke token: %d - %s", resp.StatusCode, string(body))
		return fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
	}
	return nil
}

// classifyTokenError maps Keycloak token endpoint failures to sentinel
// errors the service layer can translate for the client.
func classifyTokenError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrTooManyRequests
	}

	var kcErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &kcErr)

	switch kcErr.Error {
	case "invalid_grant":
		return ErrWrongCredentials
	case "invalid_client", "unauthorized_client":
		return ErrUnauthorized
	}

	log.Printf("Keycloak token request failed: %d - %s", resp.StatusCode, string(body))
	return fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
}

// getAdminToken obtains an admin access token using client credentials
func (k *KeycloakClient) getAdminToken() (string, error) {
	k.tokenMux.RLock()
	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		token := k.accessToken
		k.tokenMux.RUnlock()
		return token, nil
	}
	k.tokenMux.RUnlock()

	k.tokenMux.Lock()
	defer k.tokenMux.Unlock()

	// Double check after acquiring write lock
	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequest("POST", k.tokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to get admin token: %d - %s", resp.StatusCode, string(body))
		return "", ErrUnauthorized
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	// Store token with 60 second buffer before expiry
	k.accessToken = result.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn-60) * time.Second)

	log.Printf("Obtained new Keycloak admin token (expires in %d seconds)", result.ExpiresIn)

	return k.accessToken, nil
}

// CreateUser creates a new user in Keycloak
func (k *KeycloakClient) CreateUser(user KeycloakUser) (string, error) {
	token, err := k.getAdminToken()
	if err != nil {
		return "", err
	}

	createURL := fmt.Sprintf("%s/admin/realms/%s/users", k.baseURL, k.realm)

	body, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user: %w", err)
	}

	req, err := http.NewRequest("POST", createURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", ErrEmailInUse
	}
	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to create user: %d - %s", resp.StatusCode, string(respBody))
		return "", fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
	}

	// Extract user ID from Location header
	location := resp.Header.Get("Location")
	if location == "" {
		return "", ErrInvalidResponse
	}

	parts := strings.Split(location, "/")
	if len(parts) == 0 {
		return "", ErrInvalidResponse
	}
	userID := parts[len(parts)-1]

	log.Printf("Created user in Keycloak: %s (ID: %s)", user.Username, userID)

	return userID, nil
}

// SetPassword sets or resets a user's password
func (k *KeycloakClient) SetPassword(userID string, password string, temporary bool) error {
	token, err := k.getAdminToken()
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/admin/realms/%s/users/%s/reset-password", k.baseURL, k.realm, userID)

	passwordReset := PasswordReset{
		Type:      "password",
		Value:     password,
		Temporary: temporary,
	}

	body, err := json.Marshal(passwordReset)
	if err != nil {
		return fmt.Errorf("failed to marshal password reset: %w", err)
	}

	req, err := http.NewRequest("PUT", resetURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return ErrWeakPassword
	}
	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to set password: %d - %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
	}

	log.Printf("Set password for user %s (temporary: %v)", userID, temporary)

	return nil
}

// AssignRealmRole looks up a realm role by name and assigns it to a user.
func (k *KeycloakClient) AssignRealmRole(userID, roleName string) error {
	role, err := k.getRole(roleName)
	if err != nil {
		return err
	}

	token, err := k.getAdminToken()
	if err != nil {
		return err
	}

	assignURL := fmt.Sprintf("%s/admin/realms/%s/users/%s/role-mappings/realm", k.baseURL, k.realm, userID)

	// Must be an array of roles
	roles := []KeycloakRole{*role}
	body, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}

	req, err := http.NewRequest("POST", assignURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to assign role: %d - %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
	}

	log.Printf("Assigned role %s to user %s", roleName, userID)

	return nil
}

// getRole fetches a realm role by name
func (k *KeycloakClient) getRole(roleName string) (*KeycloakRole, error) {
	token, err := k.getAdminToken()
	if err != nil {
		return nil, err
	}

	roleURL := fmt.Sprintf("%s/admin/realms/%s/roles/%s", k.baseURL, k.realm, roleName)

	req, err := http.NewRequest("GET", roleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRoleNotFound
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to get role: %d - %s", resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
	}

	var role KeycloakRole
	if err := json.NewDecoder(resp.Body).Decode(&role); err != nil {
		return nil, fmt.Errorf("failed to decode role: %w", err)
	}

	return &role, nil
}

// DeleteUser deletes a user from Keycloak (for rollback)
func (k *KeycloakClient) DeleteUser(userID string) error {
	token, err := k.getAdminToken()
	if err != nil {
		return err
	}

	deleteURL := fmt.Sprintf("%s/admin/realms/%s/users/%s", k.baseURL, k.realm, userID)

	req, err := http.NewRequest("DELETE", deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("Failed to delete user: %d - %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("%w: status %d", ErrKeycloakRequest, resp.StatusCode)
	}

	log.Printf("Deleted user from Keycloak: %s", userID)

	return nil
}
