// SPDX-License-Identifier: MPL-2.0

// Package notice turns the failed results of a requirement evaluation into a
// structured diagnostic document and renders it as HTML, Markdown, plain text
// or JSON.
//
// Rendering is pure: the same Notice always produces byte-identical output.
package notice
