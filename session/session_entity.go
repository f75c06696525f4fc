package session

import (
	"context"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Role string

const (
	RoleAdmin     = Role("Admin")
	RoleDeveloper = Role("Developer")
	RoleUser      = Role("User")
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleDeveloper || r == RoleUser
}

type Identity struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
	Role Role     `json:"role"`
}

type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`

	SigningTime time.Time       `json:"-"`
	Context     context.Context `json:"-"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Identity.Role == RoleAdmin
}

func (s *Session) IsDeveloper() bool {
	return s != nil && s.Identity.Role == RoleDeveloper
}

func (s *Session) Clone() Session {
	return Session{Token: s.Token, Identity: s.Identity, SigningTime: s.SigningTime, Context: s.Context}
}
