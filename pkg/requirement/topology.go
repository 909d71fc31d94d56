// SPDX-License-Identifier: MPL-2.0

package requirement

import "fmt"

// TopologyRequirement requires the deployment to be (or not be) multi-tenant.
type TopologyRequirement struct {
	// MultiTenant is the expected mode.
	MultiTenant bool

	actual Topology
}

// NewTopology returns a requirement on the deployment topology.
func NewTopology(multiTenant bool) *TopologyRequirement {
	return &TopologyRequirement{MultiTenant: multiTenant}
}

// Name implements Requirement.
func (r *TopologyRequirement) Name() string { return "topology" }

// Check implements Requirement. This is an equality test.
func (r *TopologyRequirement) Check(env Environment) bool {
	r.actual = env.Topology()
	return r.actual.IsMulti() == r.MultiTenant
}

// Message implements Requirement.
func (r *TopologyRequirement) Message() string {
	intent := "intended for"
	if !r.MultiTenant {
		intent = "not for"
	}
	detected := "unknown"
	if r.actual != "" {
		detected = r.actual.String()
	}
	return fmt.Sprintf("This module is %s multi-tenant deployments, Detected %s", intent, detected)
}
