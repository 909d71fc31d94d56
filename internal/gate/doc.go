// SPDX-License-Identifier: MPL-2.0

// Package gate decides whether a module may stay active after its requirement
// set has been evaluated.
//
// A Gate produces an explicit Decision. Activate adds the two notification
// paths used at activation time: in blocking mode an unmet set becomes a
// *RequirementsNotMetError carrying the decision, in capture mode the rendered
// notice is returned to the privileged caller instead.
package gate
