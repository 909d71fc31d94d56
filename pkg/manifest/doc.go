// SPDX-License-Identifier: MPL-2.0

// Package manifest loads module manifests and environment snapshots.
//
// A manifest declares which module is gated and what it requires:
//
//	module:  "Shop Connector"
//	profile: "modern"
//	requires: {
//		modules: [{id: "woocommerce", min_version: "8.0.0"}]
//		symbols: {"WC_Order": "WooCommerce order API"}
//	}
//
// Documents may be written in CUE (.cue), JSON (.json) or TOML (.toml). All
// three are validated against the same embedded CUE schemas, so the error
// messages carry the JSON path of the offending value regardless of format.
package manifest
