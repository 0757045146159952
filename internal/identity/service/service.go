package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"accord/internal/identity/models"
	"accord/internal/platform/metrics"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

//go:generate mockgen -destination=mocks/publisher_mock.go -package=mocks accord/internal/identity/service Publisher

// UserStore is the persistence boundary for identity users.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenStore issues and consumes single-use email-confirmation tokens.
type TokenStore interface {
	Issue(ctx context.Context, email string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string) (string, error)
}

// Publisher hands domain events to the message channel. Called strictly
// after the owning store write returns, never before.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Domain errors surfaced to the transport layer.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired confirmation token")
)

// Service implements the identity operations that produce the cross-service
// events: registration and email confirmation.
type Service struct {
	users      UserStore
	tokens     TokenStore
	publisher  Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	signingKey []byte
	tokenTTL   time.Duration
	confirmTTL time.Duration
	now        func() time.Time
}

func New(
	users UserStore,
	tokens TokenStore,
	publisher Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
	signingKey []byte,
	tokenTTL, confirmTTL time.Duration,
) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		publisher:  publisher,
		logger:     logger,
		metrics:    m,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
		confirmTTL: confirmTTL,
		now:        time.Now,
	}
}

// RegisterRequest carries the registration input.
type RegisterRequest struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// RegisterResult is returned on successful registration. ConfirmationToken
// is handed back to the caller for delivery; no mailer is wired here.
type RegisterResult struct {
	UserID            id.UserID
	AccessToken       string
	ConfirmationToken string
}

func (r *RegisterRequest) normalize() {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Username = strings.TrimSpace(r.Username)
}

func (r *RegisterRequest) validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("valid email is required")
	}
	if r.Username == "" {
		return errors.New("username is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// Register creates an unconfirmed user, persists it, and only then hands the
// recorded registration event to the channel. A publish failure does not
// undo the registration: the user row is durable and the event can be
// replayed by an operator.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.NewUser(req.Email, req.Username, req.FirstName, req.LastName, hash, s.now().UTC())

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if _, lookupErr := s.users.FindByEmail(ctx, req.Email); lookupErr == nil {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.UsersRegistered.Inc()

	s.publishPending(ctx, user)

	confirmToken, err := s.tokens.Issue(ctx, user.Email, s.confirmTTL)
	if err != nil {
		// The user exists and the event is out; the caller can request a new
		// confirmation token later.
		s.logger.ErrorContext(ctx, "issue confirmation token",
			"user_id", user.ID.String(),
			"error", err,
		)
	}

	accessToken, err := s.issueJWT(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"username", user.Username,
	)

	return &RegisterResult{
		UserID:            user.ID,
		AccessToken:       accessToken,
		ConfirmationToken: confirmToken,
	}, nil
}

// ConfirmEmail consumes a confirmation token and transitions the user to
// confirmed. Confirming an already-confirmed user is a no-op; the
// confirmation event is recorded and published only on the actual
// transition.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	email, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume confirmation token: %w", err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user %s: %w", email, err)
	}

	if !user.ConfirmEmail(s.now().UTC()) {
		return nil
	}

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.publishPending(ctx, user)

	s.logger.InfoContext(ctx, "email confirmed", "user_id", user.ID.String())
	return nil
}

// Authenticate verifies credentials and issues an access token.
func (s *Service) Authenticate(ctx context.Context, usernameOrEmail, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(usernameOrEmail))
	if errors.Is(err, sentinel.ErrNotFound) {
		user, err = s.users.FindByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueJWT(user)
}

// publishPending hands every event recorded on the aggregate to the channel
// in append order, then clears the buffer. Runs only after the store write
// committed, so consumers never see events for rolled-back transitions.
// Publish failures are logged and the event is dropped from the buffer; the
// durable state stands and redelivery is an operational replay concern.
func (s *Service) publishPending(ctx context.Context, user *models.User) {
	for _, event := range user.Pending() {
		topic, err := event.Topic()
		if err != nil {
			s.logger.ErrorContext(ctx, "unroutable domain event",
				"type", string(event.Type),
				"error", err,
			)
			continue
		}
		value, err := event.Marshal()
		if err != nil {
			s.logger.ErrorContext(ctx, "marshal domain event",
				"type", string(event.Type),
				"error", err,
			)
			continue
		}
		if err := s.publisher.Publish(ctx, topic, event.AggregateID.String(), value); err != nil {
			s.logger.ErrorContext(ctx, "publish domain event",
				"type", string(event.Type),
				"topic", topic,
				"user_id", event.AggregateID.String(),
				"error", err,
			)
		}
	}
	user.Clear()
}

func (s *Service) issueJWT(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
