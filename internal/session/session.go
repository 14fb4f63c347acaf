// Package session issues and verifies signed session tokens carrying the
// caller's account id and role.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTTL = 24 * time.Hour

const (
	userIdClaim = "user-id"
	roleClaim   = "role"
	expClaim    = "exp"
	jtiClaim    = "jti"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

type Session struct {
	Id        string          `json:"-"`
	Token     string          `json:"-"`
	Principal types.Principal `json:"principal"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type RegisterParams struct {
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	GameId       string `json:"game_id"`
}

type Manager struct {
	log  *zap.Logger
	repo database.AccountRepository
	key  []byte
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	revoked   map[string]time.Time
	listeners map[uint64]func(*types.Principal)
	nextId    uint64
}

func NewManager(logger *zap.Logger, repo database.AccountRepository, key []byte, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Manager{
		log:       logger,
		repo:      repo,
		key:       key,
		ttl:       ttl,
		now:       time.Now,
		revoked:   make(map[string]time.Time),
		listeners: make(map[uint64]func(*types.Principal)),
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Register creates a player account and signs it in.
func (m *Manager) Register(ctx context.Context, params RegisterParams) (Session, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.EmailAddress = strings.ToLower(strings.TrimSpace(params.EmailAddress))

	if params.Name == "" {
		return Session{}, types.NewValidationError("name", "cannot be empty")
	}
	if _, err := mail.ParseAddress(params.EmailAddress); err != nil {
		return Session{}, types.NewValidationError("email_address", "must be a valid email address")
	}
	if len(params.Password) < 6 {
		return Session{}, types.NewValidationError("password", "must be at least 6 characters")
	}

	_, err := m.repo.GetAccountByEmail(ctx, params.EmailAddress)
	switch {
	case err == nil:
		return Session{}, types.NewValidationError("email_address", "is already registered")
	case !errors.Is(err, types.ErrNotFound):
		return Session{}, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	gameId := strings.TrimSpace(params.GameId)
	if gameId == "" {
		gameId = "Not set"
	}

	account, err := m.repo.CreateAccount(ctx, database.CreateAccountParams{
		Name:         params.Name,
		EmailAddress: params.EmailAddress,
		GameId:       gameId,
		PasswordHash: string(hash),
		Role:         types.RolePlayer,
	})
	if errors.Is(err, types.ErrAlreadyExists) {
		return Session{}, &types.ValidationError{Field: "email_address", Reason: "is already registered", Err: err}
	}
	if err != nil {
		return Session{}, fmt.Errorf("create account: %w", err)
	}

	return m.issue(account)
}

// Create signs in with email and password.
func (m *Manager) Create(ctx context.Context, email, password string) (Session, error) {
	account, err := m.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return m.issue(account)
}

func (m *Manager) issue(account types.Account) (Session, error) {
	now := m.now()
	sess := Session{
		Id: uuid.NewString(),
		Principal: types.Principal{
			AccountId:    account.Id,
			EmailAddress: account.EmailAddress,
			Name:         account.Name,
			Role:         account.Role,
		},
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: account.Id,
		roleClaim:   string(account.Role),
		expClaim:    sess.ExpiresAt.Unix(),
		jtiClaim:    sess.Id,
	})

	signed, err := token.SignedString(m.key)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	sess.Token = signed

	m.log.Info("session created",
		zap.Int("account_id", account.Id),
		zap.String("role", string(account.Role)),
	)
	m.notify(&sess.Principal)

	return sess, nil
}

// Verify checks the token signature, expiry and revocation and returns the
// principal. The role is reloaded from the account store so that demoted or
// deleted accounts lose access immediately.
func (m *Manager) Verify(ctx context.Context, tokenString string) (types.Principal, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return types.Principal{}, err
	}

	jti, _ := claims[jtiClaim].(string)
	if m.isRevoked(jti) {
		return types.Principal{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return types.Principal{}, fmt.Errorf("%w: invalid user id claim", ErrInvalidToken)
	}

	account, err := m.repo.GetAccountById(ctx, int(userId))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.Principal{}, fmt.Errorf("%w: unknown account", ErrInvalidToken)
		}
		return types.Principal{}, fmt.Errorf("get account: %w", err)
	}

	return types.Principal{
		AccountId:    account.Id,
		EmailAddress: account.EmailAddress,
		Name:         account.Name,
		Role:         account.Role,
	}, nil
}

// Destroy revokes the token until it would have expired anyway.
func (m *Manager) Destroy(tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}

	jti, _ := claims[jtiClaim].(string)
	exp, _ := claims[expClaim].(float64)
	if jti == "" {
		return fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	m.mu.Lock()
	now := m.now()
	for id, until := range m.revoked {
		if until.Before(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[jti] = time.Unix(int64(exp), 0)
	m.mu.Unlock()

	m.notify(nil)
	return nil
}

// OnAuthChange registers fn to be called with the new principal after every
// sign-in and with nil after every sign-out. The returned func unregisters it.
func (m *Manager) OnAuthChange(fn func(*types.Principal)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextId++
	id := m.nextId
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) notify(p *types.Principal) {
	m.mu.Lock()
	fns := make([]func(*types.Principal), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

func (m *Manager) isRevoked(jti string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok
}

func (m *Manager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
