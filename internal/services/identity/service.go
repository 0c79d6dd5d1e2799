package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/shellgame/internal/dependencies/clock"
	"github.com/mcoot/shellgame/internal/model"
	"github.com/mcoot/shellgame/internal/storage"
)

const (
	// MinPasswordLength is the shortest password Register accepts
	MinPasswordLength = 4
	// bcrypt ignores input beyond 72 bytes
	MaxPasswordLength = 72

	tokenIssuer = "shellgame"
)

// Config holds configuration for the identity service
type Config struct {
	TokenSecret []byte
	TokenTTL    time.Duration
	BcryptCost  int
}

// DefaultConfig returns default identity configuration
func DefaultConfig() Config {
	return Config{
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service is the identity registry: accounts, credentials and win counters
type Service struct {
	repo   *storage.Repository
	locker storage.Locker
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config
}

// New creates a new identity Service
func New(repo *storage.Repository, locker storage.Locker, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		repo:   repo,
		locker: locker,
		clock:  clock,
		logger: logger,
		cfg:    cfg,
	}
}

// Register creates an account with zero wins
func (s *Service) Register(ctx context.Context, username, password string) (*model.AccountSummary, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	var summary model.AccountSummary
	err = s.locker.WithLock(ctx, storage.LockUsers, func(ctx context.Context) error {
		users, err := s.repo.GetUsers(ctx)
		if err != nil {
			return err
		}
		if _, ok := users[username]; ok {
			return model.ErrDuplicateUsername
		}

		account := &model.UserAccount{
			Username:     username,
			PasswordHash: string(hash),
			CreatedAt:    s.clock.Now(),
		}
		users[username] = account
		if err := s.repo.SaveUsers(ctx, users); err != nil {
			return err
		}
		summary = account.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered", slog.String("username", username))
	return &summary, nil
}

// Authenticate checks a username and password and returns the account
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.AccountSummary, error) {
	if username == "" || password == "" {
		return nil, model.ErrInvalidCredentials
	}

	users, err := s.repo.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	account, ok := users[username]
	if !ok {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	summary := account.Summary()
	return &summary, nil
}

// Account returns the public view of a registered account
func (s *Service) Account(ctx context.Context, username string) (*model.AccountSummary, error) {
	users, err := s.repo.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	account, ok := users[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	summary := account.Summary()
	return &summary, nil
}

// CreditWin adds one win to username in users, a map loaded under the users lock.
// Unregistered usernames are skipped, practice players may never sign up.
func (s *Service) CreditWin(users map[string]*model.UserAccount, username string) bool {
	account, ok := users[username]
	if !ok {
		s.logger.Debug("win for unregistered player not counted", slog.String("username", username))
		return false
	}
	account.Wins++
	return true
}

// IssueToken signs a login token for username
func (s *Service) IssueToken(username string) (string, time.Time, error) {
	if len(s.cfg.TokenSecret) == 0 {
		return "", time.Time{}, errors.New("token secret is not configured")
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.TokenSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a login token and returns its username
func (s *Service) ParseToken(token string) (string, error) {
	if len(s.cfg.TokenSecret) == 0 || token == "" {
		return "", model.ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return s.cfg.TokenSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", model.ErrInvalidToken
	}
	return claims.Subject, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return model.InvalidInput("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return model.InvalidInput("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}
