package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SessionCookie is one cookie from a storage-state file. The field names
// follow the storage-state JSON produced by interactive login tooling, so a
// captured session drops in unmodified.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds; -1 marks a session cookie
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// SessionState is the parsed contents of a storage-state file.
type SessionState struct {
	Cookies []SessionCookie `json:"cookies"`
}

// LoadSession reads and parses a storage-state file.
func LoadSession(path string) (*SessionState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return &state, nil
}

// VerifySession checks that the session handle exists and parses before the
// run starts. The pipeline treats a missing or unreadable session as a fatal
// precondition failure rather than discovering it batches deep.
func VerifySession(path string) error {
	if path == "" {
		return fmt.Errorf("no session file configured; run the interactive login flow and point --session at its storage-state output")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("session file %s not found; run the interactive login flow to capture one: %w", path, err)
	}
	if _, err := LoadSession(path); err != nil {
		return err
	}
	return nil
}

// CookieHeader renders the cookies applicable to host as a Cookie header
// value, for engines that speak plain HTTP instead of the DevTools protocol.
func (s *SessionState) CookieHeader(host string) string {
	var parts []string
	for _, c := range s.Cookies {
		if !domainMatches(host, c.Domain) {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func domainMatches(host, cookieDomain string) bool {
	d := strings.TrimPrefix(cookieDomain, ".")
	if d == "" {
		return false
	}
	return host == d || strings.HasSuffix(host, "."+d)
}
