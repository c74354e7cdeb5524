// Package model defines the core session and history data types.
package model

import "strings"

// Identity is the minimal user metadata kept alongside the token.
// Email is the stable key of the user's history namespace.
type Identity struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Clone returns a copy of the identity, or nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// HasEmail reports whether the identity can address a history namespace.
// A blank email does not count.
func (i *Identity) HasEmail() bool {
	return i != nil && strings.TrimSpace(i.Email) != ""
}

// SessionState is the persisted form of a session.
type SessionState struct {
	Token    string    `json:"token,omitempty"`
	Identity *Identity `json:"user,omitempty"`
}
