package app

import (
	"sync"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry is the anonymous identity provider: it issues a stable player id
// together with an opaque bearer token.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]*domain.Player
}

func NewRegistry() *Registry {
	return &Registry{byToken: make(map[string]*domain.Player)}
}

// SignIn mints a new player and its token.
func (r *Registry) SignIn(name string) (domain.Player, string, error) {
	p, err := domain.NewPlayer(name)
	if err != nil {
		return domain.Player{}, "", err
	}
	token := uuid.NewString()

	r.mu.Lock()
	r.byToken[token] = p
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("player_id", string(p.ID)).Msg("player signed in")
	return *p, token, nil
}

// Resolve returns the player bound to token.
func (r *Registry) Resolve(token string) (domain.Player, bool) {
	if token == "" {
		return domain.Player{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byToken[token]
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}

func (r *Registry) Rename(token, name string) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byToken[token]
	if !ok {
		return domain.Player{}, domain.ErrUnauthorized
	}
	if err := p.SetName(name); err != nil {
		return domain.Player{}, err
	}
	log.Info().Str("module", "app.registry").Str("player_id", string(p.ID)).Str("name", p.Name).Msg("player renamed")
	return *p, nil
}

func (r *Registry) SignOut(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byToken[token]; ok {
		delete(r.byToken, token)
		log.Info().Str("module", "app.registry").Str("player_id", string(p.ID)).Msg("player signed out")
	}
}
