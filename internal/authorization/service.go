package authorization

import (
	"context"
	"errors"
	"strings"
)

// Role is the acting party as asserted by the upstream gateway.
type Role string

const (
	RoleMayorista  Role = "mayorista"
	RoleReencauche Role = "reencauche"
	RoleCliente    Role = "cliente"
	RoleAdmin      Role = "admin"
	RoleSystem     Role = "system"
)

// ParseRole normalizes a header value such as "REENCAUCHE_USER".
func ParseRole(raw string) (Role, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimSuffix(value, "_user")
	switch role := Role(value); role {
	case RoleMayorista, RoleReencauche, RoleCliente, RoleAdmin, RoleSystem:
		return role, true
	}
	return "", false
}

func (r Role) subject() string {
	return "role:" + string(r)
}

type Service interface {
	Authorize(ctx context.Context, role Role, object string, action string) error
	// Allowed is Authorize without logging, for computing offered actions.
	Allowed(role Role, object string, action string) bool
}

var (
	ErrForbidden     = errors.New("unauthorized")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
