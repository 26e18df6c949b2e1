// Package models defines the server-side domain types: accounts, roles,
// shipment entries with their column registry, attachments and audit records.
package models

import "fmt"

// Role is the closed set of account roles. The zero value is not a valid role.
type Role uint8

const (
	roleInvalid Role = iota
	RoleSuperAdmin
	RoleDevAdmin
	RoleUser

	// NumRoles bounds the enum (including the invalid zero value) so tables
	// indexed by Role can be sized at compile time.
	NumRoles
)

var roleNames = [NumRoles]string{
	roleInvalid:    "",
	RoleSuperAdmin: "SUPER_ADMIN",
	RoleDevAdmin:   "DEV_ADMIN",
	RoleUser:       "USER",
}

// Roles returns every valid role.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleDevAdmin, RoleUser}
}

func (r Role) String() string {
	if r >= NumRoles {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r > roleInvalid && r < NumRoles
}

// IsAdmin reports whether r is one of the administrative roles.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleDevAdmin
}

// ParseRole maps the stored/wire name back to a Role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles() {
		if roleNames[r] == s {
			return r, true
		}
	}
	return roleInvalid, false
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, ok := ParseRole(string(b))
	if !ok {
		return fmt.Errorf("invalid role %q", string(b))
	}
	*r = parsed
	return nil
}
