// Package domain contains the bootstrap entities and their invariants, no I/O.
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxPlayerIDLen   = 36
	MaxPlayerNameLen = 36
)

var (
	ErrPlayerNameTooLong = errors.New("player name too long")
	ErrPlayerNameEmpty   = errors.New("player name empty")
)

// MemberID is the identity-provider-issued player id. It doubles as the
// member id inside every room the player joins.
type MemberID string

type Player struct {
	ID   MemberID `json:"id"`
	Name string   `json:"name"`
}

// NewPlayer mints a fresh anonymous identity.
func NewPlayer(name string) (*Player, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &Player{ID: MemberID(uuid.NewString()), Name: name}, nil
}

func (p *Player) SetName(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	p.Name = name
	return nil
}

func validateName(name string) error {
	if len(name) == 0 {
		return ErrPlayerNameEmpty
	}
	if len(name) > MaxPlayerNameLen {
		return ErrPlayerNameTooLong
	}
	return nil
}
