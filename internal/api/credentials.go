package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
)

// ErrNoCredentials indicates an authenticated call was attempted with neither
// an API key nor a session token set.
var ErrNoCredentials = errors.New("api: no credentials set")

// Credentials holds the active authentication mode for outbound calls. At
// most one of {session token, API key} is consulted per call; the API key
// wins when both are present, so an interactive session can be overridden
// for programmatic access without logging out.
//
// It is an explicit object injected into the Client, never package state, so
// independent credential contexts can coexist in one process.
type Credentials struct {
	mu           sync.RWMutex
	apiKey       string
	sessionToken string
}

// NewCredentials returns an empty credential context.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// SetAPIKey installs or replaces the API key.
func (c *Credentials) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(key)
}

// SetSessionToken installs or replaces the session token.
func (c *Credentials) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = strings.TrimSpace(token)
}

// Clear removes both credentials. Used on logout.
func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = ""
	c.sessionToken = ""
}

// Empty reports whether no credential is set.
func (c *Credentials) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey == "" && c.sessionToken == ""
}

// bearer returns the credential to attach, API key first.
func (c *Credentials) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.apiKey != "" {
		return c.apiKey
	}
	return c.sessionToken
}

// Authorize attaches the active credential to req as a bearer token. It
// returns ErrNoCredentials when nothing is set.
func (c *Credentials) Authorize(req *http.Request) error {
	token := c.bearer()
	if token == "" {
		return ErrNoCredentials
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
