package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/user"
)

var (
	ErrAllFieldsRequired     = errors.New("all fields are required")
	ErrInvalidEmailFormat    = errors.New("invalid email format")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountNotVerified    = errors.New("account not verified, please check your inbox")
	ErrTokenRequired         = errors.New("verification token is required")
	ErrTokenInvalidOrExpired = errors.New("verification token is invalid or has expired")
	ErrPasswordMismatch      = errors.New("new passwords do not match")
	ErrWrongPassword         = errors.New("current password is incorrect")
)

// emailPattern accepts the local@domain.tld shape. Deliberately stricter than
// net/mail, which allows addresses without a dot in the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 8

// notifyTimeout bounds how long a background verification mail may take.
const notifyTimeout = 10 * time.Second

// UserStore is the credential store contract the auth service depends on.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// Notifier delivers verification links. Failures are the caller's to log;
// they never abort the flow that triggered the send.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, username, token string) error
}

// SessionCreator is the slice of the session manager the login flow needs.
type SessionCreator interface {
	Create(ctx context.Context, userID int64, username string) (string, error)
}

// ResendResult distinguishes the user-visible outcomes of a resend request.
// A missing account and a successful resend share ResendAccepted so the
// response cannot be used to probe which addresses are registered.
type ResendResult int

const (
	ResendAccepted ResendResult = iota
	ResendAlreadyVerified
)

// Service orchestrates registration, verification and login
type Service struct {
	users    UserStore
	tokens   *TokenService
	hasher   PasswordHasher
	notifier Notifier
	sessions SessionCreator
	logger   *logging.Logger
}

func NewService(
	users UserStore,
	tokens *TokenService,
	hasher PasswordHasher,
	notifier Notifier,
	sessions SessionCreator,
	logger *logging.Logger,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		notifier: notifier,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates an unverified account and sends a verification link.
// A notifier failure is logged and swallowed: the registrant sees the same
// "check your email" outcome either way.
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, ErrAllFieldsRequired
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmailFormat
	}
	if len(password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	// Friendly pre-check so the common duplicate case reports which field
	// collided. The store's unique constraints remain the authoritative
	// guard against concurrent registrations.
	existing, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.Email == email {
			return nil, user.ErrDuplicateEmail
		}
		return nil, user.ErrDuplicateUsername
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, username, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) || errors.Is(err, user.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, _, err := s.tokens.Issue(ctx, newUser.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.notifyAsync(newUser.Email, newUser.Username, token)

	return newUser, nil
}

// Login authenticates a user and establishes a session. The verification gate
// is checked before the password so an unverified account always receives the
// resend affordance.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if !existing.IsVerified {
		return "", ErrAccountNotVerified
	}

	if !s.hasher.Verify(existing.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	sessionID, err := s.sessions.Create(ctx, existing.ID, existing.Username)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return sessionID, nil
}

// ResendVerification re-issues a token for an unverified account. A missing
// account yields the same accepted outcome as a successful resend.
func (s *Service) ResendVerification(ctx context.Context, email string) (ResendResult, error) {
	email = strings.TrimSpace(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ResendAccepted, nil
		}
		return 0, fmt.Errorf("failed to get user: %w", err)
	}

	if existing.IsVerified {
		return ResendAlreadyVerified, nil
	}

	token, _, err := s.tokens.Issue(ctx, existing.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.notifyAsync(existing.Email, existing.Username, token)

	return ResendAccepted, nil
}

// Verify redeems a verification token, flipping the account to verified.
func (s *Service) Verify(ctx context.Context, token string) (*user.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}

	return s.tokens.Redeem(ctx, token)
}

// ChangePassword rotates the password of an authenticated user after
// re-checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword, confirmPassword string) error {
	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		return ErrAllFieldsRequired
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if len(newPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}

	existing, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existing.PasswordHash, currentPassword) {
		return ErrWrongPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// notifyAsync sends the verification mail without blocking the caller. The
// goroutine gets its own bounded context so a slow SMTP server can neither
// hold up the response nor inherit the request's cancellation.
func (s *Service) notifyAsync(email, username, token string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.SendVerificationEmail(ctx, email, username, token); err != nil {
			s.logger.Warn("failed to send verification email", "email", email, "error", err)
		}
	}()
}
