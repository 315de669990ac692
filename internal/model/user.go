package model

import (
	"fmt"
	"time"
)

// Role is a user's single permission level. Admin implicitly satisfies every
// role check.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleJonan  Role = "jonan"
	RoleVendor Role = "vendor"
	RoleParent Role = "parent"
)

var AllRoles = []Role{RoleAdmin, RoleJonan, RoleVendor, RoleParent}

func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// HasRole reports whether the role satisfies target. Admin satisfies any
// target role.
func (r Role) HasRole(target Role) bool {
	return r == RoleAdmin || r == target
}

// HasAnyRole reports whether the role satisfies at least one target.
func (r Role) HasAnyRole(targets ...Role) bool {
	for _, target := range targets {
		if r.HasRole(target) {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
