package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studycards/internal/logger"
	"studycards/internal/models"
	"studycards/internal/repository"
	"studycards/internal/security"
	"studycards/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrOAuthIdentity      = errors.New("missing oauth provider information")
)

// WelcomeMailer sends the welcome email after sign-up
type WelcomeMailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
}

// AuthService handles accounts and login sessions
type AuthService struct {
	userRepo        *repository.UserRepository
	mailer          WelcomeMailer
	sessionDuration time.Duration
	log             *logger.Logger
}

// NewAuthService creates a new auth service. mailer may be nil.
func NewAuthService(userRepo *repository.UserRepository, mailer WelcomeMailer, sessionDuration time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		mailer:          mailer,
		sessionDuration: sessionDuration,
		log:             log.With("component", "auth"),
	}
}

// Register creates a password account
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, hash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID)

	s.sendWelcome(ctx, user)
	return user, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
		s.log.Warn("welcome email failed", "user_id", user.ID, "error", err)
	}
}

// Login checks the password and opens a new session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) newSession(ctx context.Context, userID int64) (*models.Session, error) {
	session, err := s.userRepo.CreateSession(ctx, security.NewSessionID(), userID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession returns the user of a live session. Expired sessions are removed.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	session, err := s.userRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		if err := s.userRepo.DeleteSession(ctx, sessionID); err != nil {
			s.log.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.userRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions and reports how many went
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if n > 0 {
		s.log.Info("expired sessions removed", "count", n)
	}
	return n, nil
}

// OAuthLogin signs in with an external identity. An unknown identity is linked to
// the account with the same email, or a new account is created for it.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, ErrOAuthIdentity
	}
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		user, err = s.linkOrCreate(ctx, provider, subject, email, name)
		if err != nil {
			return nil, nil, err
		}
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) linkOrCreate(ctx context.Context, provider, subject, email, name string) (*models.User, error) {
	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
			return nil, ErrEmailTaken
		}
		if err := s.userRepo.LinkOAuthProvider(ctx, existing.ID, provider, subject); err != nil {
			return nil, fmt.Errorf("failed to link oauth provider: %w", err)
		}
		existing.OAuthProvider, existing.OAuthSubject = provider, subject
		return existing, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	// OAuth accounts get an unusable random password
	hash, err := security.HashPassword(security.NewSessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
	}
	user, err := s.userRepo.CreateUser(ctx, email, hash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}
	if err := s.userRepo.LinkOAuthProvider(ctx, user.ID, provider, subject); err != nil {
		return nil, fmt.Errorf("failed to link oauth provider: %w", err)
	}
	user.OAuthProvider, user.OAuthSubject = provider, subject
	s.log.Info("user registered via oauth", "user_id", user.ID, "provider", provider)

	s.sendWelcome(ctx, user)
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
