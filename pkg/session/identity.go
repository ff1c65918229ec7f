package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role decides which dashboard and which actions an identity gets.
type Role string

const (
	RoleUser     Role = "user"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleUser, RoleSupplier, RoleAdmin}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleSupplier, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("session: unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Identity is the authenticated user's profile.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// UnmarshalJSON accepts the backend's "_id" as well as "id".
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string `json:"id"`
		MID   string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  Role   `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = Identity{ID: raw.ID, Name: raw.Name, Email: raw.Email, Role: raw.Role}
	if i.ID == "" {
		i.ID = raw.MID
	}
	return nil
}

// Dashboard is the route this identity lands on after login.
func (i Identity) Dashboard() string {
	return "/" + string(i.Role) + "-dashboard"
}
