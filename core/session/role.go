package session

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Role is a closed permission category. Membership equals access; roles carry no ordering.
type Role string

// Roles
const (
	RoleNone    Role = "" // absent: nobody is logged in
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole parses `s` case-insensitively into one of AllRoles.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !role.Valid() {
		return RoleNone, errors.Wrapf(ErrInvalidRole, "%q", s)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// RoleSet is the set of roles allowed on a route. An empty set means public.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

func (s RoleSet) IsPublic() bool { return len(s) == 0 }

// Roles returns the members of the set, sorted.
func (s RoleSet) Roles() []Role {
	roles := make([]Role, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
