// Package restructure stitches per-page layout results into one document.
//
// Restructure is a pure function of its input: it deep-copies the pages it is
// given, holds no package state, and may be called concurrently. Three passes
// run in order, each independently optional:
//
//   - table merge: a table ending page N and a table starting page N+1 with the
//     same column count become one table on page N (tables.go, htmltable.go).
//   - title re-level: page-local heading depths are mapped onto one running
//     hierarchy so levels never jump by more than one step (titles.go).
//   - concatenation: pages are rendered into one markdown document with
//     page-prefixed image keys (concat.go).
//
// A single page has no boundary to act on and is returned unchanged.
package restructure
