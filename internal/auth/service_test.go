package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/user"
)

// fakeUserStore is an in-memory stand-in for the Postgres repository. It
// implements both UserStore and TokenStore so one fake can back a full
// register, verify, login round trip.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User

	createErr error
	getErr    error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: make(map[int64]*user.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, username, email, passwordHash string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
		if u.Username == username {
			return nil, user.ErrDuplicateUsername
		}
	}
	u := &user.User{
		ID:           f.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	f.nextID++
	return copyUser(u), nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) GetByUsernameOrEmail(ctx context.Context, username, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var byUsername *user.User
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
		if u.Username == username {
			byUsername = u
		}
	}
	if byUsername != nil {
		return copyUser(byUsername), nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return copyUser(u), nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok || u.IsVerified {
		return user.ErrNotFound
	}
	u.VerificationToken = &token
	u.VerificationExpires = &expires
	return nil
}

func (f *fakeUserStore) ConsumeVerificationToken(ctx context.Context, token string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.IsVerified || u.VerificationToken == nil || *u.VerificationToken != token {
			continue
		}
		if u.VerificationExpires == nil || !u.VerificationExpires.After(time.Now()) {
			continue
		}
		u.IsVerified = true
		u.VerificationToken = nil
		u.VerificationExpires = nil
		return copyUser(u), nil
	}
	return nil, user.ErrNotFound
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

// fakeNotifier records sends on a channel so tests can wait for the
// asynchronous delivery goroutine.
type fakeNotifier struct {
	sent chan sentMail
	err  error
}

type sentMail struct {
	email    string
	username string
	token    string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan sentMail, 4)}
}

func (f *fakeNotifier) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	if f.err != nil {
		return f.err
	}
	f.sent <- sentMail{email: toEmail, username: username, token: token}
	return nil
}

func (f *fakeNotifier) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("verification email was never sent")
		return sentMail{}
	}
}

type fakeSessions struct {
	created []int64
	err     error
}

func (f *fakeSessions) Create(ctx context.Context, userID int64, username string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, userID)
	return "session-for-" + username, nil
}

// plainHasher keeps service tests fast; the real argon2id hasher has its own
// tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Verify(hash, password string) bool    { return hash == "plain:"+password }

type serviceFixture struct {
	service  *Service
	store    *fakeUserStore
	notifier *fakeNotifier
	sessions *fakeSessions
}

func newServiceFixture() *serviceFixture {
	store := newFakeUserStore()
	notifier := newFakeNotifier()
	sessions := &fakeSessions{}
	service := NewService(
		store,
		NewTokenService(store),
		plainHasher{},
		notifier,
		sessions,
		logging.NewLogger(true),
	)
	return &serviceFixture{service: service, store: store, notifier: notifier, sessions: sessions}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"missing username", "", "ana@example.com", "password123", ErrAllFieldsRequired},
		{"missing email", "ana", "", "password123", ErrAllFieldsRequired},
		{"missing password", "ana", "ana@example.com", "", ErrAllFieldsRequired},
		{"whitespace username", "   ", "ana@example.com", "password123", ErrAllFieldsRequired},
		{"email without at", "ana", "ana.example.com", "password123", ErrInvalidEmailFormat},
		{"email without dot in domain", "ana", "ana@example", "password123", ErrInvalidEmailFormat},
		{"email with spaces", "ana", "ana @example.com", "password123", ErrInvalidEmailFormat},
		{"password too short", "ana", "ana@example.com", "short", ErrPasswordTooShort},
		{"password of seven chars", "ana", "ana@example.com", "1234567", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			_, err := f.service.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegisterPasswordOfExactlyEightChars(t *testing.T) {
	f := newServiceFixture()
	u, err := f.service.Register(context.Background(), "ana", "ana@example.com", "12345678")
	require.NoError(t, err)
	assert.False(t, u.IsVerified)
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	f := newServiceFixture()
	u, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.Equal(t, "plain:password123", u.PasswordHash)
}

func TestRegisterSendsVerificationMail(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)

	mail := f.notifier.waitForMail(t)
	assert.Equal(t, "ana@example.com", mail.email)
	assert.Equal(t, "ana", mail.username)
	assert.NotEmpty(t, mail.token)
}

func TestRegisterSucceedsWhenMailDeliveryFails(t *testing.T) {
	f := newServiceFixture()
	f.notifier.err = errors.New("smtp unreachable")

	u, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)

	_, err = f.service.Register(context.Background(), "other", "ana@example.com", "password123")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)

	_, err = f.service.Register(context.Background(), "ana", "other@example.com", "password123")
	assert.ErrorIs(t, err, user.ErrDuplicateUsername)
}

func TestRegisterDuplicateBothReportsEmail(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)

	// Username collides with one account, email with the same account; the
	// email conflict wins the report.
	_, err = f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newServiceFixture()
	registerVerified(t, f, "ana", "ana@example.com", "password123")

	_, err := f.service.Login(context.Background(), "ana@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownAndWrongPasswordAreIndistinguishable(t *testing.T) {
	f := newServiceFixture()
	registerVerified(t, f, "ana", "ana@example.com", "password123")

	_, errUnknown := f.service.Login(context.Background(), "nobody@example.com", "password123")
	_, errWrong := f.service.Login(context.Background(), "ana@example.com", "wrongpassword")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLoginUnverifiedAccountGatedBeforePassword(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)

	// The verification gate fires whether or not the password is right.
	_, err = f.service.Login(context.Background(), "ana@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountNotVerified)

	_, err = f.service.Login(context.Background(), "ana@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrAccountNotVerified)
}

func TestLoginVerifiedCreatesSession(t *testing.T) {
	f := newServiceFixture()
	u := registerVerified(t, f, "ana", "ana@example.com", "password123")

	sessionID, err := f.service.Login(context.Background(), "ana@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "session-for-ana", sessionID)
	assert.Equal(t, []int64{u.ID}, f.sessions.created)
}

func TestLoginEmptyFields(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmptyToken(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrTokenRequired)
}

func TestVerifyUnknownToken(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Verify(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
}

func TestVerifyRedeemsAtMostOnce(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)
	mail := f.notifier.waitForMail(t)

	verified, err := f.service.Verify(context.Background(), mail.token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Equal(t, "ana", verified.Username)

	_, err = f.service.Verify(context.Background(), mail.token)
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
}

func TestVerifyExpiredToken(t *testing.T) {
	f := newServiceFixture()
	u, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)
	mail := f.notifier.waitForMail(t)

	expired := time.Now().Add(-time.Minute)
	f.store.users[u.ID].VerificationExpires = &expired

	_, err = f.service.Verify(context.Background(), mail.token)
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
}

func TestResendInvalidatesPreviousToken(t *testing.T) {
	f := newServiceFixture()
	_, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)
	first := f.notifier.waitForMail(t)

	result, err := f.service.ResendVerification(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, ResendAccepted, result)
	second := f.notifier.waitForMail(t)
	require.NotEqual(t, first.token, second.token)

	_, err = f.service.Verify(context.Background(), first.token)
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)

	verified, err := f.service.Verify(context.Background(), second.token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
}

func TestResendUnknownEmailReportsAccepted(t *testing.T) {
	f := newServiceFixture()
	result, err := f.service.ResendVerification(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, ResendAccepted, result)
}

func TestResendAlreadyVerified(t *testing.T) {
	f := newServiceFixture()
	registerVerified(t, f, "ana", "ana@example.com", "password123")

	result, err := f.service.ResendVerification(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, ResendAlreadyVerified, result)
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture()
	u := registerVerified(t, f, "ana", "ana@example.com", "password123")

	tests := []struct {
		name    string
		current string
		new     string
		confirm string
		wantErr error
	}{
		{"missing fields", "", "newpassword1", "newpassword1", ErrAllFieldsRequired},
		{"mismatched confirmation", "password123", "newpassword1", "newpassword2", ErrPasswordMismatch},
		{"new password too short", "password123", "short", "short", ErrPasswordTooShort},
		{"wrong current password", "not-the-password", "newpassword1", "newpassword1", ErrWrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.ChangePassword(context.Background(), u.ID, tt.current, tt.new, tt.confirm)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	err := f.service.ChangePassword(context.Background(), u.ID, "password123", "newpassword1", "newpassword1")
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), "ana@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(context.Background(), "ana@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestRegisterVerifyLoginRoundTrip(t *testing.T) {
	f := newServiceFixture()

	u, err := f.service.Register(context.Background(), "ana", "ana@example.com", "password123")
	require.NoError(t, err)
	require.False(t, u.IsVerified)

	mail := f.notifier.waitForMail(t)
	require.True(t, strings.TrimSpace(mail.token) != "")

	_, err = f.service.Login(context.Background(), "ana@example.com", "password123")
	require.ErrorIs(t, err, ErrAccountNotVerified)

	verified, err := f.service.Verify(context.Background(), mail.token)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)

	sessionID, err := f.service.Login(context.Background(), "ana@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
}

// registerVerified registers an account and flips it to verified through the
// token flow.
func registerVerified(t *testing.T, f *serviceFixture, username, email, password string) *user.User {
	t.Helper()
	_, err := f.service.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	mail := f.notifier.waitForMail(t)
	verified, err := f.service.Verify(context.Background(), mail.token)
	require.NoError(t, err)
	return verified
}
