// Package auth implements the session provider: credential checks, JWT
// session issuance, and session-change notification.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"localmade/internal/models"
	"localmade/internal/repository"
	"localmade/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Generic user-facing auth failures. Backend detail is intentionally not
// leaked; only the validation package surfaces specific messages.
var (
	ErrInvalidCredentials = errors.New("The login information is incorrect")
	ErrSignUpUnavailable  = errors.New("Sorry, you cannot sign up at this time. Please try again later.")
)

const sessionTTL = 7 * 24 * time.Hour

// Session is the explicit session state handed to controllers. No global
// session singleton exists; callers receive and pass this value.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Provider issues, validates, and revokes sessions and notifies subscribers
// of session changes.
type Provider struct {
	accounts repository.AccountRepository
	secret   []byte

	mu     sync.Mutex
	nextID int
	subs   map[int]func(*Session)
}

// NewProvider creates a session provider backed by the given account store.
func NewProvider(accounts repository.AccountRepository, jwtSecret string) *Provider {
	return &Provider{
		accounts: accounts,
		secret:   []byte(jwtSecret),
		subs:     make(map[int]func(*Session)),
	}
}

// SignUp validates the credentials locally, then creates the account and
// signs the user in. Validation failures block the remote call and carry
// specific messages; every backend fault collapses to ErrSignUpUnavailable.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrSignUpUnavailable
	}
	if existing != nil {
		return nil, ErrSignUpUnavailable
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrSignUpUnavailable
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		return nil, ErrSignUpUnavailable
	}

	return p.issue(account)
}

// SignInWithPassword authenticates and issues a session. All failures look
// the same to the caller.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil || account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p.issue(account)
}

// SignOut ends the session and notifies subscribers with a nil session.
func (p *Provider) SignOut(_ context.Context) {
	p.notify(nil)
}

// GetSession parses and validates a session token.
func (p *Provider) GetSession(token string) (*Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, models.NewUnauthorizedError("Invalid token structure - missing subject")
	}
	email, _ := claims["email"].(string)

	session := &Session{UserID: sub, Email: email, Token: token}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session, nil
}

// OnSessionChange registers a subscriber; the returned function removes it.
// Subscribers are invoked with the new session, or nil on sign-out.
func (p *Provider) OnSessionChange(cb func(*Session)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subs[id] = cb
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Provider) issue(account *models.Account) (*Session, error) {
	now := time.Now()
	expiresAt := now.Add(sessionTTL)
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"iss":   "localmade-api",
		"aud":   "localmade-client",
		"exp":   expiresAt.Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	session := &Session{
		UserID:    account.ID,
		Email:     account.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	p.notify(session)
	return session, nil
}

func (p *Provider) notify(s *Session) {
	p.mu.Lock()
	subs := make([]func(*Session), 0, len(p.subs))
	for _, cb := range p.subs {
		subs = append(subs, cb)
	}
	p.mu.Unlock()

	for _, cb := range subs {
		cb(s)
	}
}
