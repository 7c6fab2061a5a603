package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-idempotent-eventflow/internal/apperr"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/auth"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/events"
	"github.com/imrishuroy/go-idempotent-eventflow/internal/metrics"
)

var (
	// ErrUserExists is returned for both the fast-path lookup and a lost insert race.
	ErrUserExists = errors.New("user exists")
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// accounts without a real credential.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRoleNotAllowed rejects self-service requests for a privileged role.
	ErrRoleNotAllowed = errors.New("role cannot be self-assigned")
)

// EventPublisher is implemented by events.Publisher.
type EventPublisher interface {
	PublishOnce(ctx context.Context, req events.Request) (events.Outcome, error)
}

// TokenIssuer is implemented by auth.TokenService.
type TokenIssuer interface {
	Issue(subject, role string) (auth.Issued, error)
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Username      string
	Password      string
	Role          string
	CorrelationID string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	ExpiresIn int64
	Username  string
	Role      string
}

// Service runs the registration and login flows.
type Service struct {
	store      *Store
	hasher     *auth.PasswordHasher
	tokens     TokenIssuer
	publisher  EventPublisher
	usersTopic string
	nowFunc    func() time.Time
}

// NewService wires the flows. usersTopic is the queue URL user.registered
// events are sent to; an empty topic disables publication.
func NewService(store *Store, hasher *auth.PasswordHasher, tokens TokenIssuer, publisher EventPublisher, usersTopic string) *Service {
	return &Service{
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		publisher:  publisher,
		usersTopic: usersTopic,
		nowFunc:    time.Now,
	}
}

// Register creates an account. It returns ErrUserExists for a duplicate
// username whether the duplicate is seen by the lookup or by the insert.
// Once the account is persisted the call succeeds; publishing the
// user.registered event is best-effort.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	logger := zerolog.Ctx(ctx)
	username := strings.TrimSpace(in.Username)

	role, ok := auth.ParseRole(in.Role)
	if !ok || username == "" || in.Password == "" {
		metrics.Registrations.WithLabelValues("validation_failed").Inc()
		return apperr.Validation("accounts.register", "username, password and a known role are required")
	}
	if !role.SelfAssignable() {
		metrics.Registrations.WithLabelValues("validation_failed").Inc()
		return apperr.E(apperr.KindValidation, "accounts.register", ErrRoleNotAllowed)
	}

	existing, err := s.store.Get(ctx, username)
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return err
	}
	if existing != nil {
		metrics.Registrations.WithLabelValues("user_exists").Inc()
		return apperr.Conflict("accounts.register", ErrUserExists)
	}

	hash, err := s.hashPassword("accounts.register", in.Password)
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return err
	}

	now := s.nowFunc().UTC()
	res, err := s.store.Create(ctx, Account{
		Username:       username,
		CredentialHash: hash,
		Role:           string(role),
		Source:         SourceRegistration,
		CreatedAt:      now,
	})
	if err != nil {
		metrics.Registrations.WithLabelValues("error").Inc()
		return err
	}
	if res == Conflict {
		// lost the race to a concurrent registration or to the consumer
		logger.Info().Str("username", username).Msg("registration conflict on insert")
		metrics.Registrations.WithLabelValues("user_exists").Inc()
		return apperr.Conflict("accounts.register", ErrUserExists)
	}
	metrics.Registrations.WithLabelValues("ok").Inc()

	s.publishRegistered(ctx, username, role, now, in.CorrelationID)
	return nil
}

func (s *Service) publishRegistered(ctx context.Context, username string, role auth.Role, at time.Time, correlationID string) {
	if s.publisher == nil || s.usersTopic == "" {
		return
	}
	out, err := s.publisher.PublishOnce(ctx, events.Request{
		Type:          events.TypeUserRegistered,
		LogicalKey:    events.UserKey(username),
		OwnerHint:     username,
		PartitionKey:  username,
		Topic:         s.usersTopic,
		CorrelationID: correlationID,
		Payload: events.UserRegistered{
			Username:              username,
			Role:                  string(role),
			OccurredAtEpochMillis: at.UnixMilli(),
		},
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("username", username).
			Str("kind", apperr.KindOf(err).String()).
			Msg("user.registered not published; account is persisted")
		return
	}
	zerolog.Ctx(ctx).Debug().Str("username", username).Str("outcome", out.String()).Msg("user.registered published")
}

// Login checks the credential and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	a, err := s.store.Get(ctx, strings.TrimSpace(username))
	if err != nil {
		return LoginResult{}, err
	}
	if a == nil || a.External() || !s.hasher.Matches(a.CredentialHash, password) {
		return LoginResult{}, apperr.E(apperr.KindAuthentication, "accounts.login", ErrInvalidCredentials)
	}
	issued, err := s.tokens.Issue(a.Username, a.Role)
	if err != nil {
		return LoginResult{}, apperr.E(apperr.KindUnknown, "accounts.login", err)
	}
	return LoginResult{
		Token:     issued.Token,
		ExpiresIn: issued.ExpiresIn,
		Username:  a.Username,
		Role:      a.Role,
	}, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// ChangePassword sets a new credential for an existing account. An account
// materialized from an event becomes able to log in afterwards.
func (s *Service) ChangePassword(ctx context.Context, username, password string) error {
	hash, err := s.hashPassword("accounts.change_password", password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateCredential(ctx, username, hash); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("username", username).Msg("credential reset")
	return nil
}

func (s *Service) hashPassword(op, password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperr.E(apperr.KindValidation, op, err)
	}
	if err != nil {
		return "", apperr.E(apperr.KindUnknown, op, err)
	}
	return hash, nil
}
