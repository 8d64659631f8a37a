package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/telemetry"
	"github.com/medtrack/clinic-service/internal/users"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrMissingPassword = errors.New("password is required")
	ErrUserDataMissing = errors.New("user data could not be retrieved")
)

// LoginResult bundles the tokens and the resolved application user.
type LoginResult struct {
	Tokens *TokenPair  `json:"tokens"`
	User   *users.User `json:"user"`
}

// RegisterRequest carries the fields for a new account.
type RegisterRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Role           string `json:"userType"`
	Specialization string `json:"specialization,omitempty"`
	LicenseNumber  string `json:"licenseNumber,omitempty"`
	DoctorID       string `json:"doctorId,omitempty"`
}

// Service orchestrates sign-in, registration and sign-out across the
// identity provider and the application's user records.
type Service struct {
	provider  IdentityProvider
	verifier  *Verifier
	repo      *users.Repository
	watcher   *Watcher
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
}

func NewService(provider IdentityProvider, verifier *Verifier, repo *users.Repository, watcher *Watcher, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{
		provider:  provider,
		verifier:  verifier,
		repo:      repo,
		watcher:   watcher,
		publisher: publisher,
		metrics:   metrics,
	}
}

// Login authenticates against the identity provider and resolves the
// application user record. A valid identity whose record is missing is
// an error; the account is unusable without its profile.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	tokens, err := s.provider.Login(email, password)
	if err != nil {
		s.metrics.RecordAuthFailure(ctx, "login_failed")
		return nil, err
	}

	principal, err := s.verifier.ParseAndVerifyToken(tokens.AccessToken)
	if err != nil {
		s.metrics.RecordAuthFailure(ctx, "token_verify_failed")
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetByAuthID(ctx, principal.UserID)
	if err != nil {
		log.Printf("Login succeeded for %s but user record lookup failed: %v", principal.UserID, err)
		return nil, ErrUserDataMissing
	}

	s.watcher.Notify(user)
	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Register creates the account in the identity provider first and the
// application record second. If the record cannot be written the
// provider-side user is deleted so the email is not left burned.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*users.User, error) {
	if !validEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 6 {
		return nil, ErrWeakPassword
	}
	if !users.ValidRole(req.Role) {
		return nil, users.ErrInvalidRole
	}

	authID, err := s.provider.CreateUser(KeycloakUser{
		Username:  req.Email,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Enabled:   true,
	})
	if err != nil {
		s.metrics.RecordAuthFailure(ctx, "register_failed")
		return nil, err
	}

	if err := s.provider.SetPassword(authID, req.Password, false); err != nil {
		s.rollbackIdentity(authID)
		return nil, err
	}
	if err := s.provider.AssignRealmRole(authID, req.Role); err != nil {
		s.rollbackIdentity(authID)
		return nil, err
	}

	user, err := s.repo.Create(ctx, &users.User{
		AuthID:         authID,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
		DoctorID:       req.DoctorID,
	})
	if err != nil {
		s.rollbackIdentity(authID)
		return nil, fmt.Errorf("creating user record: %w", err)
	}

	s.metrics.RecordEntityOperation(ctx, "user", "register")
	s.publish(ctx, messaging.EventUserRegistered,
		messaging.NewUserRegisteredEvent(user.ID, user.Email, user.Role))
	return user, nil
}

// Logout revokes the refresh token and clears the session watchers.
// Revocation failure still clears the local session.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	var err error
	if refreshToken != "" {
		err = s.provider.Logout(refreshToken)
		if err != nil {
			log.Printf("Token revocation failed: %v", err)
		}
	}
	s.watcher.Notify(nil)
	return err
}

func (s *Service) rollbackIdentity(authID string) {
	if err := s.provider.DeleteUser(authID); err != nil {
		log.Printf("Rollback failed, orphaned identity %s: %v", authID, err)
	}
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Failed to publish %s event: %v", routingKey, err)
	}
}

// validEmail does a shape check only; the identity provider is the
// authority on deliverability.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
