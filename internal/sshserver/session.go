// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"github.com/invowk/modgate/internal/notice"
)

// Session exit codes.
const (
	ExitAllowed = 0
	ExitBlocked = 1
	ExitUsage   = 2
	ExitFailed  = 3
)

// ctxKeyModule holds the module bound to the session's token.
const ctxKeyModule = "module"

// ErrNoModule is reported when a session reaches the handler without an
// authenticated module.
var ErrNoModule = errors.New("session is not bound to a module")

// passwordHandler authenticates a session by consuming a token.
func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	token, valid := s.ConsumeToken(password)
	if !valid {
		s.logger.Warn("invalid token authentication attempt", "user", ctx.User(), "remote", ctx.RemoteAddr())
		return false
	}

	ctx.SetValue(ctxKeyModule, token.Module)

	s.logger.Debug("token authentication successful", "module", token.Module)
	return true
}

// publicKeyHandler rejects all public key authentication.
func (s *Server) publicKeyHandler(_ ssh.Context, _ ssh.PublicKey) bool {
	return false
}

// captureMiddleware answers every session with a capture-mode evaluation.
func (s *Server) captureMiddleware() wish.Middleware {
	return func(_ ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			module, _ := sess.Context().Value(ctxKeyModule).(string)
			code := s.capture(sess.Context(), module, sess.Command(), sess, sess.Stderr())
			_ = sess.Exit(code) //nolint:errcheck // Terminal operation; error non-critical
		}
	}
}

// capture evaluates module and writes the outcome to out. The first argument,
// if any, names the notice format. It returns the session exit code.
func (s *Server) capture(ctx context.Context, module string, args []string, out, errOut io.Writer) int {
	if module == "" {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", ErrNoModule)
		return ExitFailed
	}

	format := s.cfg.DefaultFormat
	if len(args) > 0 {
		format = notice.Format(args[0])
	}
	if err := format.Validate(); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return ExitUsage
	}
	if len(args) > 1 {
		_, _ = fmt.Fprintf(errOut, "Error: unexpected arguments %q\n", args[1:])
		return ExitUsage
	}

	d, err := s.evaluate(ctx, module)
	if err != nil {
		s.logger.Error("capture evaluation failed", "module", module, "error", err)
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return ExitFailed
	}

	if d.Allowed() || d.Notice == nil {
		s.logger.Info("capture session", "module", module, "outcome", d.Outcome)
		_, _ = fmt.Fprintf(out, "%s: all %d requirements satisfied\n", module, d.Results.Len())
		return ExitAllowed
	}

	rendered, err := notice.Render(*d.Notice, format)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return ExitFailed
	}
	s.logger.Info("capture session", "module", module, "outcome", d.Outcome, "failed", len(d.Notice.Items))
	_, _ = io.WriteString(out, rendered)
	return ExitBlocked
}
