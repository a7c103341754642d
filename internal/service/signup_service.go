package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"yamdb/internal/auth"
	"yamdb/internal/entity"
	"yamdb/internal/mailer"
	"yamdb/internal/textutil"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MessageReservedUsername = `username "me" is not allowed`
	MessageInvalidUsername  = "username may contain only letters, digits and @/./+/-/_"
	MessageInvalidEmail     = "enter a valid email address"
	MessageEmailTaken       = "a user with this email already exists"
	MessageEmailMismatch    = "email does not match the registered username"
	MessageCodeMismatch     = "confirmation code does not match"
	MessageCodeExpired      = "confirmation code has expired"
	MessageUsernameTaken    = "a user with this username already exists"
)

// SignupConfig controls confirmation code generation and delivery.
type SignupConfig struct {
	CodeLength     int
	CodeDigitBound int
	// CodeTTL <= 0 disables expiry.
	CodeTTL     time.Duration
	MailFrom    string
	MailSubject string
}

// DefaultSignupConfig returns the stock settings.
func DefaultSignupConfig() SignupConfig {
	return SignupConfig{
		CodeLength:     auth.DefaultCodeLength,
		CodeDigitBound: auth.DefaultCodeDigitBound,
		CodeTTL:        24 * time.Hour,
		MailFrom:       "noreply@yamdb.local",
		MailSubject:    "YaMDb confirmation code",
	}
}

// UserStore is the part of the repository the signup flow needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.DbUser, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	CreateUser(ctx context.Context, user *entity.DbUser) error
	SetConfirmationCode(ctx context.Context, userID uint, code string, issuedAt time.Time, ttl time.Duration) error
	ConsumeConfirmationCode(ctx context.Context, userID uint, code string, now time.Time) error
}

// Notifier queues outgoing mail.
type Notifier interface {
	Enqueue(ctx context.Context, msg mailer.Message) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(user *entity.DbUser) (string, time.Time, error)
}

// SignupService 处理注册与确认码换取令牌的流程。
type SignupService struct {
	store    UserStore
	notifier Notifier
	tokens   TokenIssuer
	codes    *auth.CodeGenerator
	cfg      SignupConfig
	validate *validator.Validate
	now      func() time.Time
}

// NewSignupService wires the signup flow.
func NewSignupService(store UserStore, notifier Notifier, tokens TokenIssuer, cfg SignupConfig) *SignupService {
	defaults := DefaultSignupConfig()
	if strings.TrimSpace(cfg.MailFrom) == "" {
		cfg.MailFrom = defaults.MailFrom
	}
	if strings.TrimSpace(cfg.MailSubject) == "" {
		cfg.MailSubject = defaults.MailSubject
	}
	codes := auth.NewCodeGenerator(cfg.CodeLength, cfg.CodeDigitBound)
	cfg.CodeLength, cfg.CodeDigitBound = codes.Length, codes.DigitBound

	return &SignupService{
		store:    store,
		notifier: notifier,
		tokens:   tokens,
		codes:    codes,
		cfg:      cfg,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RequestSignup registers a pending account or re-issues the code for an
// existing username/email pair, then queues the code for delivery.
func (s *SignupService) RequestSignup(ctx context.Context, req entity.SignupRequest) (*entity.SignupResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := s.validateSignup(username, email); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if user.Email != email {
			return nil, NewValidationError("email", MessageEmailMismatch)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createPending(ctx, username, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("lookup user %q: %w", username, err)
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate confirmation code: %w", err)
	}
	if err := s.store.SetConfirmationCode(ctx, user.ID, code, s.now(), s.cfg.CodeTTL); err != nil {
		return nil, fmt.Errorf("store confirmation code: %w", err)
	}

	s.deliver(ctx, user, code)
	return &entity.SignupResponse{Username: user.Username, Email: user.Email}, nil
}

func (s *SignupService) validateSignup(username, email string) error {
	if username == "" {
		return NewValidationError("username", "this field is required")
	}
	if username == entity.ReservedUsername {
		return NewValidationError("username", MessageReservedUsername)
	}
	if len(username) > 150 || !textutil.IsValidUsername(username) {
		return NewValidationError("username", MessageInvalidUsername)
	}
	if email == "" {
		return NewValidationError("email", "this field is required")
	}
	if err := s.validate.Var(email, "email,max=254"); err != nil {
		return NewValidationError("email", MessageInvalidEmail)
	}
	return nil
}

func (s *SignupService) createPending(ctx context.Context, username, email string) (*entity.DbUser, error) {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, NewValidationError("email", MessageEmailTaken)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	user := &entity.DbUser{
		Username: username,
		Email:    email,
		Role:     entity.UserRoleUser,
		IsActive: false,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发注册抢先写入了同名或同邮箱账户
			return nil, NewValidationError("username", MessageUsernameTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *SignupService) deliver(ctx context.Context, user *entity.DbUser, code string) {
	if s.notifier == nil {
		logrus.WithField("username", user.Username).Warn("no mail notifier configured, confirmation code not sent")
		return
	}
	msg := mailer.Message{
		From:    s.cfg.MailFrom,
		To:      user.Email,
		Subject: s.cfg.MailSubject,
		Body:    s.messageBody(user.Username, code),
	}
	if err := s.notifier.Enqueue(ctx, msg); err != nil {
		logrus.WithError(err).WithField("username", user.Username).Error("failed to queue confirmation mail")
	}
}

func (s *SignupService) messageBody(username, code string) string {
	body := fmt.Sprintf("Hello, %s!\n\nYour YaMDb confirmation code: %s\n", username, code)
	if s.cfg.CodeTTL > 0 {
		body += fmt.Sprintf("The code is valid for %s.\n", s.cfg.CodeTTL)
	}
	return body
}

// ObtainToken exchanges a valid confirmation code for an access token and
// activates the account. A code can be used once.
func (s *SignupService) ObtainToken(ctx context.Context, req entity.TokenRequest) (*entity.TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	code := strings.TrimSpace(req.ConfirmationCode)
	if username == "" {
		return nil, NewValidationError("username", "this field is required")
	}
	if code == "" {
		return nil, NewValidationError("confirmation_code", "this field is required")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user %q: %w", username, err)
	}

	now := s.now()
	if !user.Confirmation.Matches(code) {
		return nil, NewValidationError("confirmation_code", MessageCodeMismatch)
	}
	if user.Confirmation.Expired(now) {
		return nil, NewValidationError("confirmation_code", MessageCodeExpired)
	}

	if err := s.store.ConsumeConfirmationCode(ctx, user.ID, user.Confirmation.Value, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 同一确认码被并发请求先行消费
			return nil, NewValidationError("confirmation_code", MessageCodeMismatch)
		}
		return nil, fmt.Errorf("consume confirmation code: %w", err)
	}
	user.IsActive = true
	user.Confirmation = entity.ConfirmationCode{}

	token, _, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &entity.TokenResponse{Token: token}, nil
}
