package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/avelarde/devtrack/internal/user"
)

// verificationTokenTTL is the window in which a verification link works.
const verificationTokenTTL = 24 * time.Hour

// TokenStore is the slice of the credential store the token service needs.
type TokenStore interface {
	SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error
	ConsumeVerificationToken(ctx context.Context, token string) (*user.User, error)
}

// TokenService issues and redeems single-use email verification tokens.
type TokenService struct {
	store TokenStore
}

func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store}
}

// Issue generates a fresh verification token for the user and persists it.
// Any previously pending token is overwritten and stops working.
func (s *TokenService) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	token, err := generateRandomToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate verification token: %w", err)
	}

	expires := time.Now().Add(verificationTokenTTL)
	if err := s.store.SetVerificationToken(ctx, userID, token, expires); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store verification token: %w", err)
	}

	return token, expires, nil
}

// Redeem consumes a verification token. The store performs the lookup and
// clear in one statement, so a token redeems at most once.
func (s *TokenService) Redeem(ctx context.Context, token string) (*user.User, error) {
	verified, err := s.store.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, fmt.Errorf("failed to redeem verification token: %w", err)
	}

	return verified, nil
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
