// Package auth authenticates the single administrator account and tracks
// their sessions. Any valid session may perform every admin operation.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Provider interface {
	Authenticate(ctx context.Context, email, password string) (Session, error)
	Validate(ctx context.Context, token string) (Session, error)
	Revoke(ctx context.Context, token string)
}

// StaticProvider checks credentials against one configured admin email and
// bcrypt password hash. Sessions live in memory and do not survive a restart.
type StaticProvider struct {
	email string
	hash  []byte
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

func NewStaticProvider(email, passwordHash string, ttl time.Duration) (*StaticProvider, error) {
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("auth: admin password hash is not a bcrypt hash: %w", err)
	}
	return &StaticProvider{
		email:    strings.ToLower(strings.TrimSpace(email)),
		hash:     []byte(passwordHash),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}, nil
}

var _ Provider = (*StaticProvider)(nil)

// Authenticate returns a new session for the admin. Wrong email and wrong
// password fail the same way.
func (p *StaticProvider) Authenticate(_ context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	// Compare the hash even for an unknown email so both failures cost the same.
	pwErr := bcrypt.CompareHashAndPassword(p.hash, []byte(password))
	if email != p.email || pwErr != nil {
		return Session{}, fmt.Errorf("auth.StaticProvider.Authenticate: %w", models.ErrAuth)
	}

	s := Session{
		Token:     uuid.NewString(),
		Email:     p.email,
		ExpiresAt: p.now().Add(p.ttl),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	p.sessions[s.Token] = s
	return s, nil
}

func (p *StaticProvider) Validate(_ context.Context, token string) (Session, error) {
	p.mu.RLock()
	s, ok := p.sessions[token]
	p.mu.RUnlock()
	if !ok {
		return Session{}, fmt.Errorf("auth.StaticProvider.Validate: %w: unknown session", models.ErrAuth)
	}
	if !p.now().Before(s.ExpiresAt) {
		p.Revoke(context.Background(), token)
		return Session{}, fmt.Errorf("auth.StaticProvider.Validate: %w: session expired", models.ErrAuth)
	}
	return s, nil
}

func (p *StaticProvider) Revoke(_ context.Context, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, token)
}

func (p *StaticProvider) pruneLocked() {
	now := p.now()
	for tok, s := range p.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(p.sessions, tok)
		}
	}
}

// HashPassword produces the value expected in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
