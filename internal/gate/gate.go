// SPDX-License-Identifier: MPL-2.0

package gate

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/modgate/internal/notice"
	"github.com/invowk/modgate/pkg/requirement"
)

const (
	// OutcomeUnevaluated is the zero Outcome; no evaluation has happened.
	OutcomeUnevaluated Outcome = iota
	// OutcomeAllow means every requirement is satisfied.
	OutcomeAllow
	// OutcomeBlock means at least one requirement failed.
	OutcomeBlock
)

const (
	// ModeBlocking turns a Block into a *RequirementsNotMetError.
	ModeBlocking Mode = iota
	// ModeCapture returns the notice of a Block without raising an error.
	// Only trusted callers may select it.
	ModeCapture
)

// ErrRequirementsNotMet is returned by Activate in blocking mode when the
// requirement set is not satisfied.
var ErrRequirementsNotMet = errors.New("requirements not met")

type (
	// Outcome is the result of a gate evaluation.
	Outcome int

	// Mode selects how Activate reports a Block.
	Mode int

	// Decision is the explicit result of one evaluation.
	Decision struct {
		Outcome Outcome
		Module  string
		Results requirement.ResultSet
		// Notice is non-nil only when Outcome is OutcomeBlock.
		Notice *notice.Notice
	}

	// RequirementsNotMetError is returned by Activate in blocking mode.
	// It wraps ErrRequirementsNotMet for errors.Is() compatibility.
	RequirementsNotMetError struct {
		Module   string
		Decision Decision
	}

	// Gate evaluates requirement sets for one module. It keeps no state
	// between calls.
	Gate struct {
		module string
		logger *log.Logger
	}

	// Option configures a Gate.
	Option func(*Gate)
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeBlock:
		return "block"
	default:
		return "unevaluated"
	}
}

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeCapture {
		return "capture"
	}
	return "blocking"
}

// Allowed reports whether the module may stay active.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Error implements the error interface.
func (e *RequirementsNotMetError) Error() string {
	failed := 0
	if e.Decision.Notice != nil {
		failed = len(e.Decision.Notice.Items)
	}
	return fmt.Sprintf("module %q: %d of %d requirements not met", e.Module, failed, e.Decision.Results.Len())
}

// Unwrap returns ErrRequirementsNotMet for errors.Is() compatibility.
func (e *RequirementsNotMetError) Unwrap() error { return ErrRequirementsNotMet }

// WithLogger sets the logger used for evaluation events.
func WithLogger(logger *log.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Gate for the named module.
func New(module string, opts ...Option) *Gate {
	g := &Gate{
		module: module,
		logger: log.NewWithOptions(io.Discard, log.Options{Prefix: "gate"}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Module returns the module name used in notices.
func (g *Gate) Module() string { return g.module }

// Evaluate runs set against env and returns the decision. A Block decision
// carries the notice built from the failed results. Evaluate never fails.
func (g *Gate) Evaluate(set *requirement.Set, env requirement.Environment) Decision {
	satisfied := set.Satisfied(env)
	results := set.Results()

	d := Decision{Module: g.module, Results: results}
	if satisfied {
		d.Outcome = OutcomeAllow
		g.logger.Debug("requirements satisfied", "module", g.module, "profile", set.Profile(), "checked", results.Len())
		return d
	}

	n := notice.Build(g.module, results)
	d.Outcome = OutcomeBlock
	d.Notice = &n
	g.logger.Debug("requirements not satisfied", "module", g.module, "profile", set.Profile(),
		"checked", results.Len(), "failed", len(n.Items))
	return d
}

// Activate is the activation hook entry point. It evaluates set and reports
// a Block according to mode: in ModeBlocking it returns a
// *RequirementsNotMetError, in ModeCapture it returns the decision with its
// notice and a nil error. Activate never writes the notice anywhere.
func (g *Gate) Activate(set *requirement.Set, env requirement.Environment, mode Mode) (Decision, error) {
	d := g.Evaluate(set, env)
	if d.Allowed() {
		return d, nil
	}
	if mode == ModeCapture {
		g.logger.Debug("activation blocked, notice captured", "module", g.module)
		return d, nil
	}
	g.logger.Info("activation blocked", "module", g.module, "mode", mode)
	return d, &RequirementsNotMetError{Module: g.module, Decision: d}
}
