// SPDX-License-Identifier: MPL-2.0

package requirement

import "slices"

type (
	// CheckResult records the outcome of one requirement in one evaluation.
	CheckResult struct {
		Requirement Requirement
		Satisfied   bool
	}

	// ResultSet is the ordered outcome of evaluating a Set. Results are kept in
	// declaration order, without sorting or deduplication. The zero ResultSet is
	// empty and successful.
	ResultSet struct {
		results []CheckResult
		failed  bool
	}

	// Set is an ordered collection of requirements for one profile. A Set is
	// meant to be built fresh for each evaluation and is not safe for
	// concurrent use.
	Set struct {
		profile      Profile
		requirements []Requirement
		results      ResultSet
	}
)

// NewResultSet builds a ResultSet from already evaluated results, computing the
// overall success once.
func NewResultSet(results ...CheckResult) ResultSet {
	rs := ResultSet{results: slices.Clone(results)}
	for _, r := range results {
		if !r.Satisfied {
			rs.failed = true
		}
	}
	return rs
}

// Success reports whether every result is satisfied.
func (rs ResultSet) Success() bool { return !rs.failed }

// Len returns the number of results.
func (rs ResultSet) Len() int { return len(rs.results) }

// All returns the results in declaration order.
func (rs ResultSet) All() []CheckResult { return slices.Clone(rs.results) }

// Failed returns the unsatisfied results in declaration order.
func (rs ResultSet) Failed() []CheckResult {
	var failed []CheckResult
	for _, r := range rs.results {
		if !r.Satisfied {
			failed = append(failed, r)
		}
	}
	return failed
}

// NewSet creates a Set declaring reqs in the given order.
func NewSet(profile Profile, reqs ...Requirement) *Set {
	return &Set{profile: profile, requirements: reqs}
}

// Profile returns the profile the set was declared for.
func (s *Set) Profile() Profile { return s.profile }

// Requirements returns the declared requirements in order.
func (s *Set) Requirements() []Requirement { return slices.Clone(s.requirements) }

// Add appends requirements to the declaration.
func (s *Set) Add(reqs ...Requirement) {
	s.requirements = append(s.requirements, reqs...)
}

// Satisfied evaluates every requirement against env, in declaration order and
// without short-circuiting, replaces the cached results and returns the AND of
// all checks.
func (s *Set) Satisfied(env Environment) bool {
	results := make([]CheckResult, 0, len(s.requirements))
	for _, req := range s.requirements {
		results = append(results, CheckResult{Requirement: req, Satisfied: req.Check(env)})
	}
	s.results = NewResultSet(results...)
	return s.results.Success()
}

// Results returns the results of the last Satisfied call, or an empty
// ResultSet if Satisfied has not been called.
func (s *Set) Results() ResultSet { return s.results }
