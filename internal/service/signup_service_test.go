package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"yamdb/internal/auth"
	"yamdb/internal/entity"
	"yamdb/internal/mailer"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]*entity.DbUser
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*entity.DbUser)}
}

func (s *fakeUserStore) GetUserByUsername(_ context.Context, username string) (*entity.DbUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*entity.DbUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *entity.DbUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	s.nextID++
	user.ID = s.nextID
	clone := *user
	s.users[user.Username] = &clone
	return nil
}

func (s *fakeUserStore) SetConfirmationCode(_ context.Context, userID uint, code string, issuedAt time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.byID(userID)
	if user == nil {
		return gorm.ErrRecordNotFound
	}
	user.Confirmation = entity.ConfirmationCode{Value: code, IssuedAt: &issuedAt}
	if ttl > 0 {
		expires := issuedAt.Add(ttl)
		user.Confirmation.ExpiresAt = &expires
	}
	return nil
}

func (s *fakeUserStore) ConsumeConfirmationCode(_ context.Context, userID uint, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.byID(userID)
	if user == nil || user.Confirmation.Value == "" || user.Confirmation.Value != code || user.Confirmation.Expired(now) {
		return gorm.ErrRecordNotFound
	}
	user.IsActive = true
	user.Confirmation = entity.ConfirmationCode{}
	return nil
}

func (s *fakeUserStore) byID(id uint) *entity.DbUser {
	for _, user := range s.users {
		if user.ID == id {
			return user
		}
	}
	return nil
}

func (s *fakeUserStore) code(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[username]; ok {
		return user.Confirmation.Value
	}
	return ""
}

type recordingNotifier struct {
	messages []mailer.Message
	err      error
}

func (n *recordingNotifier) Enqueue(_ context.Context, msg mailer.Message) error {
	n.messages = append(n.messages, msg)
	return n.err
}

type signupFixture struct {
	svc      *SignupService
	store    *fakeUserStore
	notifier *recordingNotifier
	tokens   *auth.Manager
}

func newSignupFixture(t *testing.T, cfg SignupConfig) *signupFixture {
	t.Helper()
	tokens, err := auth.NewManager("test-secret", "yamdb", time.Hour)
	require.NoError(t, err)
	store := newFakeUserStore()
	notifier := &recordingNotifier{}
	return &signupFixture{
		svc:      NewSignupService(store, notifier, tokens, cfg),
		store:    store,
		notifier: notifier,
		tokens:   tokens,
	}
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	ve, ok := AsValidationError(err)
	require.True(t, ok, "expected validation error, got %v", err)
	require.Equal(t, field, ve.Field)
}

func TestRequestSignupRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		field    string
	}{
		{"reserved me", "me", "me@example.com", "username"},
		{"empty username", "", "a@example.com", "username"},
		{"bad pattern", "bad name!", "a@example.com", "username"},
		{"slash", "a/b", "a@example.com", "username"},
		{"empty email", "alice", "", "email"},
		{"malformed email", "alice", "not-an-email", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSignupFixture(t, DefaultSignupConfig())
			_, err := f.svc.RequestSignup(context.Background(), entity.SignupRequest{Username: tt.username, Email: tt.email})
			requireValidation(t, err, tt.field)
			require.Empty(t, f.notifier.messages)
		})
	}
}

func TestReservedUsernameRejectedEvenWhenPresent(t *testing.T) {
	f := newSignupFixture(t, DefaultSignupConfig())
	require.NoError(t, f.store.CreateUser(context.Background(), &entity.DbUser{Username: "me", Email: "me@example.com"}))

	_, err := f.svc.RequestSignup(context.Background(), entity.SignupRequest{Username: "me", Email: "me@example.com"})
	require.Error(t, err)
	require.Equal(t, MessageReservedUsername, err.(*ValidationError).Message)
}

func TestRequestSignupCreatesPendingAccount(t *testing.T) {
	f := newSignupFixture(t, DefaultSignupConfig())

	resp, err := f.svc.RequestSignup(context.Background(), entity.SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.Equal(t, &entity.SignupResponse{Username: "alice", Email: "alice@example.com"}, resp)

	user, err := f.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, user.IsActive)
	require.Equal(t, entity.UserRoleUser, user.Role)
	require.Len(t, user.Confirmation.Value, auth.DefaultCodeLength)
	require.NotNil(t, user.Confirmation.ExpiresAt)

	require.Len(t, f.notifier.messages, 1)
	msg := f.notifier.messages[0]
	require.Equal(t, "alice@example.com", msg.To)
	require.Contains(t, msg.Body, user.Confirmation.Value)
}

func TestRequestSignupEmailConflicts(t *testing.T) {
	f := newSignupFixture(t, DefaultSignupConfig())
	ctx := context.Background()
	_, err := f.svc.RequestSignup(ctx, entity.SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = f.svc.RequestSignup(ctx, entity.SignupRequest{Username: "alice", Email: "other@example.com"})
	requireValidation(t, err, "email")
	require.Equal(t, MessageEmailMismatch, err.(*ValidationError).Message)

	_, err = f.svc.RequestSignup(ctx, entity.SignupRequest{Username: "mallory", Email: "alice@example.com"})
	requireValidation(t, err, "email")
	require.Equal(t, MessageEmailTaken, err.(*ValidationError).Message)

	require.Len(t, f.notifier.messages, 1)
}

func TestObtainTokenFlow(t *testing.T) {
	f := newSignupFixture(t, DefaultSignupConfig())
	ctx := context.Background()

	_, err := f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "ghost", ConfirmationCode: "123456"})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.RequestSignup(ctx, entity.SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	code := f.store.code("alice")

	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "alice", ConfirmationCode: "wrong"})
	requireValidation(t, err, "confirmation_code")

	resp, err := f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "alice", ConfirmationCode: code})
	require.NoError(t, err)
	claims, err := f.tokens.ParseToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)

	user, err := f.store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, user.IsActive)

	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "alice", ConfirmationCode: code})
	requireValidation(t, err, "confirmation_code")
}

// bob signs up twice; only the latest code works, and only once.
func TestBobScenario(t *testing.T) {
	f := newSignupFixture(t, SignupConfig{CodeLength: 12})
	ctx := context.Background()
	req := entity.SignupRequest{Username: "bob", Email: "bob@x.com"}

	_, err := f.svc.RequestSignup(ctx, req)
	require.NoError(t, err)
	first := f.store.code("bob")

	_, err = f.svc.RequestSignup(ctx, req)
	require.NoError(t, err)
	second := f.store.code("bob")
	require.NotEqual(t, first, second)
	require.Len(t, f.notifier.messages, 2)
	require.Contains(t, f.notifier.messages[1].Body, second)

	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "bob", ConfirmationCode: first})
	requireValidation(t, err, "confirmation_code")

	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "bob", ConfirmationCode: second})
	require.NoError(t, err)

	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "bob", ConfirmationCode: second})
	requireValidation(t, err, "confirmation_code")

	// 已激活账户再次申请会重新发码
	_, err = f.svc.RequestSignup(ctx, req)
	require.NoError(t, err)
	third := f.store.code("bob")
	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "bob", ConfirmationCode: third})
	require.NoError(t, err)
}

func TestObtainTokenRejectsExpiredCode(t *testing.T) {
	f := newSignupFixture(t, SignupConfig{CodeTTL: time.Minute})
	ctx := context.Background()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return issued }

	_, err := f.svc.RequestSignup(ctx, entity.SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	code := f.store.code("alice")

	f.svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = f.svc.ObtainToken(ctx, entity.TokenRequest{Username: "alice", ConfirmationCode: code})
	requireValidation(t, err, "confirmation_code")
	require.Equal(t, MessageCodeExpired, err.(*ValidationError).Message)
}

func TestSignupSurvivesDeliveryFailure(t *testing.T) {
	f := newSignupFixture(t, DefaultSignupConfig())
	f.notifier.err = errors.New("queue full")

	_, err := f.svc.RequestSignup(context.Background(), entity.SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, f.store.code("alice"))
}

func TestSignupConfigShapesCode(t *testing.T) {
	f := newSignupFixture(t, SignupConfig{CodeLength: 8, CodeDigitBound: 2})
	_, err := f.svc.RequestSignup(context.Background(), entity.SignupRequest{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	code := f.store.code("alice")
	require.Len(t, code, 8)
	for _, r := range code {
		require.Contains(t, "01", string(r))
	}
}
