// Package service holds the authentication use cases: login, admin login,
// signup, session resolution and logout.  It depends on small interfaces so
// the HTTP layer can be tested without MySQL, Redis or RabbitMQ.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/ev-asset-platform/internal/apperr"
	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/queue"
	"github.com/iliyamo/ev-asset-platform/internal/repository"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

// MinPasswordLength is enforced on signup.
const MinPasswordLength = 8

// AccountStore is the credential store as seen by the service.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// RevocationStore blacklists token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// EventPublisher ships auth events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// Hasher is the password hasher contract.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) bool
	CompareDummy(plain string) bool
}

// Session is the outcome of a successful login or signup.
type Session struct {
	Account *model.Account
	Token   utils.SessionToken
}

// Meta describes the request that triggered an operation, for events.
type Meta struct {
	Endpoint string
	RemoteIP string
}

// AuthService wires the credential store, hasher, token issuer/verifier and
// the optional revocation list and event publisher.
type AuthService struct {
	accounts    AccountStore
	hasher      Hasher
	issuer      *utils.TokenIssuer
	verifier    *utils.TokenVerifier
	revocations RevocationStore
	events      EventPublisher
	log         *logger.Logger
	now         utils.Clock
}

// Deps groups the collaborators of AuthService.  Revocations and Events may
// be nil.
type Deps struct {
	Accounts    AccountStore
	Hasher      Hasher
	Issuer      *utils.TokenIssuer
	Verifier    *utils.TokenVerifier
	Revocations RevocationStore
	Events      EventPublisher
	Log         *logger.Logger
	Clock       utils.Clock
}

func NewAuthService(d Deps) *AuthService {
	if d.Accounts == nil || d.Hasher == nil || d.Issuer == nil || d.Verifier == nil {
		panic("nil dependency passed to NewAuthService")
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &AuthService{
		accounts:    d.Accounts,
		hasher:      d.Hasher,
		issuer:      d.Issuer,
		verifier:    d.Verifier,
		revocations: d.Revocations,
		events:      d.Events,
		log:         d.Log,
		now:         d.Clock,
	}
}

// errInvalidCredentials is shared by every credential failure so responses
// never reveal whether the email exists.
func errInvalidCredentials() error { return apperr.Authentication("invalid credentials") }

// Login verifies email and password and issues a session.
func (s *AuthService) Login(ctx context.Context, email, password string, meta Meta) (*Session, error) {
	return s.login(ctx, email, password, meta, nil)
}

// AdminLogin is Login restricted to admin accounts.  Any other role gets the
// same answer as a wrong password.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string, meta Meta) (*Session, error) {
	admin := model.RoleAdmin
	return s.login(ctx, email, password, meta, &admin)
}

func (s *AuthService) login(ctx context.Context, email, password string, meta Meta, only *model.Role) (*Session, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(password)
			s.publish(ctx, queue.EventLoginFailed, nil, email, meta)
			return nil, errInvalidCredentials()
		}
		return nil, apperr.Unexpected(err)
	}
	if !s.hasher.Compare(password, acc.PasswordHash) {
		s.publish(ctx, queue.EventLoginFailed, nil, email, meta)
		return nil, errInvalidCredentials()
	}
	if only != nil && acc.Role != *only {
		s.publish(ctx, queue.EventLoginFailed, nil, email, meta)
		return nil, errInvalidCredentials()
	}
	if acc.Status == model.StatusInactive {
		return nil, apperr.Inactive("account inactive")
	}

	now := s.now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, acc.ID, now); err != nil {
		return nil, apperr.Unexpected(err)
	}
	acc.LastLogin = &now

	tok, err := s.issuer.Issue(acc.ID, acc.Email, acc.Role)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	s.publish(ctx, queue.EventLoggedIn, acc, acc.Email, meta)
	return &Session{Account: acc, Token: tok}, nil
}

// SignupInput is the self-service registration payload.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Signup creates an investor or operator account and logs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, meta Meta) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := repository.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || strings.TrimSpace(in.Role) == "" {
		return nil, apperr.Validation("name, email, password and role are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.Validation("invalid email")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok || !role.SelfService() {
		return nil, apperr.Validation("role must be investor or operator")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	now := s.now().UTC()
	acc := &model.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       model.StatusActive,
		LastLogin:    &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperr.Conflict("email already exists")
		}
		return nil, apperr.Unexpected(err)
	}

	tok, err := s.issuer.Issue(acc.ID, acc.Email, acc.Role)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	s.publish(ctx, queue.EventSignedUp, acc, acc.Email, meta)
	return &Session{Account: acc, Token: tok}, nil
}

// Authenticate verifies a raw token and checks it against the revocation
// list.  Expired and invalid tokens keep their distinct sentinel wrapped in
// an authentication error.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*utils.Claims, error) {
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: "invalid or expired session", Err: err}
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: "invalid or expired session", Err: err}
		}
		if revoked {
			return nil, &apperr.Error{Kind: apperr.KindAuthentication, Message: "invalid or expired session", Err: ErrSessionRevoked}
		}
	}
	return claims, nil
}

// ErrSessionRevoked marks a token that was logged out before expiry.
var ErrSessionRevoked = errors.New("session revoked")

// CurrentAccount resolves a raw token into the account it names.  It backs
// the session bootstrap endpoint.
func (s *AuthService) CurrentAccount(ctx context.Context, raw string) (*model.Account, error) {
	claims, err := s.Authenticate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(ctx, claims.AccountID)
}

// ValidateToken is CurrentAccount for tokens handed over explicitly; it
// additionally rejects inactive accounts.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) (*model.Account, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Validation("token is required")
	}
	acc, err := s.CurrentAccount(ctx, raw)
	if err != nil {
		return nil, err
	}
	if acc.Status == model.StatusInactive {
		return nil, apperr.Inactive("account inactive")
	}
	return acc, nil
}

func (s *AuthService) loadAccount(ctx context.Context, id string) (*model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, apperr.Unexpected(err)
	}
	return acc, nil
}

// Logout revokes the token when it is still valid.  A missing or broken
// token is not an error: the caller clears the cookie either way.
func (s *AuthService) Logout(ctx context.Context, raw string, meta Meta) {
	if raw == "" {
		return
	}
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return
	}
	if s.revocations != nil && claims.ExpiresAt != nil {
		if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.log.Error().Err(err).Str("jti", claims.ID).Msg("revoke session failed")
		}
	}
	s.publish(ctx, queue.EventLoggedOut, &model.Account{ID: claims.AccountID, Role: claims.Role}, claims.Email, meta)
}

// publish is best effort; broker trouble is logged and never fails the
// request.
func (s *AuthService) publish(ctx context.Context, typ string, acc *model.Account, email string, meta Meta) {
	if s.events == nil {
		return
	}
	ev := queue.AuthEvent{
		Type:       typ,
		Email:      email,
		Endpoint:   meta.Endpoint,
		RemoteIP:   meta.RemoteIP,
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	}
	if acc != nil {
		ev.AccountID = acc.ID
		ev.Role = string(acc.Role)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Msg("publish auth event failed")
	}
}
