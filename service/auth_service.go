package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/internal/metrics"
	"github.com/sparksclub/walletauth/ports"
)

const (
	DefaultAppName      = "SparksClub"
	DefaultChallengeTTL = 5 * time.Minute
	DefaultSessionTTL   = 7 * 24 * time.Hour

	nonceBytes = 32
)

// Config holds the tunables of the auth service
type Config struct {
	AppName      string
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// Deps are the collaborators of the auth service
type Deps struct {
	Challenges  ports.ChallengeStore
	Users       ports.UserStore
	Tokenizer   ports.Tokenizer
	Verifier    ports.SignatureVerifier
	Revocations ports.RevocationStore
	Events      ports.EventPublisher
}

// Option configures optional behaviour of the auth service
type Option func(*AuthService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithRandom replaces crypto/rand as nonce source
func WithRandom(r io.Reader) Option {
	return func(s *AuthService) { s.random = r }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *AuthService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthService) { s.metrics = m }
}

// AuthService handles the wallet login handshake
type AuthService struct {
	challenges  ports.ChallengeStore
	users       ports.UserStore
	tokenizer   ports.Tokenizer
	verifier    ports.SignatureVerifier
	revocations ports.RevocationStore
	eventPub    ports.EventPublisher

	preamble     string
	challengeTTL time.Duration
	sessionTTL   time.Duration

	now     func() time.Time
	random  io.Reader
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// IssuedChallenge is what the client receives and must sign
type IssuedChallenge struct {
	Message   string
	ExpiresIn int
}

// LoginRequest carries a signed challenge. Signature is base64 encoded.
type LoginRequest struct {
	Address    string
	WalletKind string
	Message    string
	Signature  string
}

// NewAuthService creates a new authentication service
func NewAuthService(cfg Config, deps Deps, opts ...Option) *AuthService {
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	s := &AuthService{
		challenges:   deps.Challenges,
		users:        deps.Users,
		tokenizer:    deps.Tokenizer,
		verifier:     deps.Verifier,
		revocations:  deps.Revocations,
		eventPub:     deps.Events,
		preamble:     "Sign in to " + cfg.AppName + "\n\nNonce: ",
		challengeTTL: cfg.ChallengeTTL,
		sessionTTL:   cfg.SessionTTL,
		now:          time.Now,
		random:       rand.Reader,
		log:          logrus.StandardLogger(),
	}
	if s.eventPub == nil {
		s.eventPub = nopPublisher{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type nopPublisher struct{}

func (nopPublisher) PublishLogin(context.Context, *core.Session) error   { return nil }
func (nopPublisher) PublishLogout(context.Context, string, string) error { return nil }

// IssueChallenge generates a fresh challenge for address, replacing any pending one
func (s *AuthService) IssueChallenge(ctx context.Context, address, walletKind string) (*IssuedChallenge, error) {
	address = core.NormalizeAddress(address)
	if address == "" {
		return nil, core.InvalidRequest("wallet address is required")
	}
	kind, err := core.ParseWalletKind(walletKind)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, nonceBytes)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return nil, core.Internal("failed to generate nonce", err)
	}
	nonce := hex.EncodeToString(raw)

	now := s.now()
	challenge := &core.Challenge{
		ID:         uuid.New().String(),
		Address:    address,
		Message:    s.preamble + nonce,
		Nonce:      nonce,
		WalletKind: kind,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.challengeTTL),
	}

	if err := s.challenges.Put(ctx, challenge); err != nil {
		return nil, core.Internal("failed to store challenge", err)
	}

	s.log.WithFields(logrus.Fields{
		"challenge_id": challenge.ID,
		"address":      address,
		"wallet_kind":  kind,
	}).Debug("challenge issued")
	if s.metrics != nil {
		s.metrics.ChallengeIssued(string(kind))
	}

	return &IssuedChallenge{
		Message:   challenge.Message,
		ExpiresIn: int(s.challengeTTL / time.Second),
	}, nil
}

// Login verifies a signed challenge and mints a session for the wallet owner.
// The stored challenge is consumed before any check, so a failed attempt burns it.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*core.Session, error) {
	session, err := s.login(ctx, req)

	log := s.log.WithFields(logrus.Fields{
		"address":     core.NormalizeAddress(req.Address),
		"wallet_kind": req.WalletKind,
	})
	outcome := metrics.OutcomeSuccess
	switch core.KindOf(err) {
	case core.KindInternal:
		if err != nil {
			outcome = metrics.OutcomeError
			log.WithError(err).Error("wallet login failed")
		}
	case core.KindInvalidRequest:
		outcome = metrics.OutcomeInvalidRequest
	case core.KindInvalidOrExpiredChallenge:
		outcome = metrics.OutcomeInvalidChallenge
		log.WithError(err).Info("wallet login rejected")
	case core.KindInvalidSignature:
		outcome = metrics.OutcomeInvalidSignature
		log.WithError(err).Warn("wallet login rejected")
	}
	if err == nil {
		log.WithFields(logrus.Fields{"user_id": session.UserID, "session_id": session.ID}).Info("wallet login succeeded")
	}
	if s.metrics != nil {
		s.metrics.LoginAttempt(outcome)
	}

	return session, err
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*core.Session, error) {
	address := core.NormalizeAddress(req.Address)
	if address == "" || req.Message == "" || strings.TrimSpace(req.Signature) == "" {
		return nil, core.InvalidRequest("wallet address, nonce and signature are required")
	}
	kind, err := core.ParseWalletKind(req.WalletKind)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Take(ctx, address)
	if err != nil {
		if errors.Is(err, core.ErrChallengeNotFound) {
			return nil, core.InvalidOrExpiredChallenge(err)
		}
		return nil, core.Internal("failed to load challenge", err)
	}

	if challenge.Message != req.Message {
		return nil, core.InvalidOrExpiredChallenge(errors.New("challenge text mismatch"))
	}

	signature, err := decodeSignature(req.Signature)
	if err != nil {
		return nil, core.InvalidSignature(err)
	}
	if err := s.verifier.Verify(address, []byte(challenge.Message), signature); err != nil {
		return nil, core.InvalidSignature(err)
	}

	user, err := s.users.FindOrCreateByWalletAddress(ctx, address, kind)
	if err != nil {
		return nil, core.Internal("failed to resolve user", err)
	}

	now := s.now()
	session := &core.Session{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Address:    address,
		WalletKind: kind,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.sessionTTL),
		User:       user,
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, core.Internal("failed to mint session", err)
	}
	session.Token = token

	if err := s.eventPub.PublishLogin(ctx, session); err != nil {
		// The session is valid regardless, other instances only miss a notification
		s.log.WithError(err).Warn("failed to publish login event")
	}

	return session, nil
}

// ValidateSession parses a session token and checks it has not been revoked
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.Unauthenticated(core.ErrInvalidToken)
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, core.Unauthenticated(err)
	}

	if !s.now().Before(session.ExpiresAt) {
		return nil, core.Unauthenticated(core.ErrTokenExpired)
	}

	invalidated, err := s.revocations.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, core.Internal("failed to check session revocation", err)
	}
	if invalidated {
		return nil, core.Unauthenticated(core.ErrTokenInvalidated)
	}

	return session, nil
}

// CurrentUser resolves the user behind a valid session token
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*core.User, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.Unauthenticated(err)
		}
		return nil, core.Internal("failed to load user", err)
	}
	return user, nil
}

// Logout invalidates a session token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return err
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if err := s.revocations.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return core.Internal("failed to invalidate session", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		// The session is already revoked in the store, which is the critical part
		s.log.WithError(err).Warn("failed to publish logout event")
	}

	s.log.WithFields(logrus.Fields{"user_id": session.UserID, "session_id": session.ID}).Info("session logged out")
	return nil
}

// SessionTTL is the lifetime of minted sessions
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func decodeSignature(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err == nil {
		return sig, nil
	}
	if sig, rawErr := base64.RawStdEncoding.DecodeString(encoded); rawErr == nil {
		return sig, nil
	}
	return nil, fmt.Errorf("signature is not valid base64: %w", err)
}
