package email

import (
	"errors"
	"strings"
)

// ErrEmailRequired is returned when an empty address is verified.
var ErrEmailRequired = errors.New("email is required")

// Record is one allow-list row. The same shape serves sheet rows and the
// fallback list; everything but Email is optional.
type Record struct {
	Email            string `yaml:"email"`
	Name             string `yaml:"name,omitempty"`
	Institution      string `yaml:"institution,omitempty"`
	Department       string `yaml:"department,omitempty"`
	RegistrationDate string `yaml:"registrationDate,omitempty"`
}

// Result is the outcome of a verification. Profile fields are only set for
// verified addresses whose row carries them.
type Result struct {
	Verified    bool   `json:"verified"`
	Institution string `json:"institution,omitempty"`
	Department  string `json:"department,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Normalize is the allow-list lookup key for an address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
