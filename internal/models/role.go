package models

import (
	"fmt"
	"strings"
)

// Role is the authorization level carried inside tokens and credentials.
type Role string

const (
	// RolePatient can only manage itself.
	RolePatient Role = "Patient"
	// RoleCaregiver has semi-clearance over a patient.
	RoleCaregiver Role = "Caregiver"
	// RoleAdmin is the highest clearance role.
	RoleAdmin Role = "Admin"
)

var roleRank = map[Role]int{
	RolePatient:   0,
	RoleCaregiver: 1,
	RoleAdmin:     2,
}

// ParseRole matches a role string case-insensitively.
func ParseRole(s string) (Role, error) {
	for r := range roleRank {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// AtLeast reports whether r meets the minimum authorization level.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

func (r Role) String() string { return string(r) }
