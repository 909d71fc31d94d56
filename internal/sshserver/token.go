// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ConnectionUser is the SSH user name printed in connection instructions.
// The server ignores the user and authenticates by token only.
const ConnectionUser = "modgate"

// tokenCleanupInterval is how often expired tokens are purged.
const tokenCleanupInterval = time.Minute

type (
	// Token grants one capture session for one module.
	Token struct {
		Value     string
		Module    string
		CreatedAt time.Time
		ExpiresAt time.Time
	}

	// ConnectionInfo contains information needed to connect to the SSH server.
	ConnectionInfo struct {
		Host     string
		Port     int
		Token    string
		User     string
		Module   string
		ExpireAt time.Time
	}

	// Clock supplies the current time for token expiry.
	Clock interface {
		Now() time.Time
	}

	realClock struct{}
)

func (realClock) Now() time.Time { return time.Now() }

// Command returns the ssh invocation that captures the notice in format.
// An empty format leaves the choice to the server.
func (c *ConnectionInfo) Command(format string) string {
	cmd := fmt.Sprintf("ssh -p %d %s@%s", c.Port, c.User, c.Host)
	if format != "" {
		cmd += " " + format
	}
	return cmd
}

// Address returns host:port.
func (c *ConnectionInfo) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GenerateToken creates a new single-use token for module.
func (s *Server) GenerateToken(module string) (*Token, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.clock.Now()
	token := &Token{
		Value:     hex.EncodeToString(tokenBytes),
		Module:    module,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}

	s.tokenMu.Lock()
	s.tokens[token.Value] = token
	s.tokenMu.Unlock()

	s.logger.Debug("generated token", "module", module, "expires", token.ExpiresAt)

	return token, nil
}

// ValidateToken reports whether a token is known and unexpired without
// consuming it. Expired tokens are revoked.
func (s *Server) ValidateToken(tokenValue string) (*Token, bool) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return s.lookupLocked(tokenValue)
}

// ConsumeToken validates a token and revokes it in the same step, so each
// token authenticates at most one session.
func (s *Server) ConsumeToken(tokenValue string) (*Token, bool) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	token, ok := s.lookupLocked(tokenValue)
	if ok {
		delete(s.tokens, tokenValue)
	}
	return token, ok
}

// RevokeToken invalidates a token.
func (s *Server) RevokeToken(tokenValue string) {
	s.tokenMu.Lock()
	delete(s.tokens, tokenValue)
	s.tokenMu.Unlock()
}

// RevokeTokensForModule revokes every outstanding token for module.
func (s *Server) RevokeTokensForModule(module string) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	for tokenValue, token := range s.tokens {
		if token.Module == module {
			delete(s.tokens, tokenValue)
		}
	}
}

// PendingTokens returns the number of tokens that are still outstanding.
func (s *Server) PendingTokens() int {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return len(s.tokens)
}

// lookupLocked must be called with tokenMu held.
func (s *Server) lookupLocked(tokenValue string) (*Token, bool) {
	token, exists := s.tokens[tokenValue]
	if !exists {
		return nil, false
	}
	if s.clock.Now().After(token.ExpiresAt) {
		delete(s.tokens, tokenValue)
		return nil, false
	}
	return token, true
}

// purgeExpiredTokens removes expired tokens and returns how many it removed.
func (s *Server) purgeExpiredTokens() int {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	now := s.clock.Now()
	purged := 0
	for tokenValue, token := range s.tokens {
		if now.After(token.ExpiresAt) {
			delete(s.tokens, tokenValue)
			purged++
		}
	}
	return purged
}

// cleanupExpiredTokens periodically removes expired tokens.
func (s *Server) cleanupExpiredTokens(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.purgeExpiredTokens(); n > 0 {
				s.logger.Debug("purged expired tokens", "count", n)
			}
		}
	}
}
