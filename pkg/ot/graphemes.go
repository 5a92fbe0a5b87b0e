package ot

import "github.com/clipperhouse/uax29/graphemes"

// IsGraphemeAligned reports whether every Retain/Delete boundary op would
// produce, when applied to snapshot, falls on a grapheme-cluster boundary
// rather than splitting one apart (e.g. a base character from a combining
// mark, or one half of a surrogate-style emoji sequence).
//
// This does not change Apply's behavior — the chosen snapshot unit is the
// Unicode code point (see DESIGN.md's "Unit of length" note) — but gives
// callers an opt-in check for the common bug class of an editor UI handing
// the algebra a cursor position that lands inside a cluster.
func IsGraphemeAligned(snapshot string, op *Operation) bool {
	boundaries := graphemeBoundaries(snapshot)
	cursor := 0
	for _, c := range op.ops {
		switch v := c.(type) {
		case RetainOp:
			cursor += v.Length()
			if !boundaries[cursor] {
				return false
			}
		case DeleteOp:
			cursor += v.Length()
			if !boundaries[cursor] {
				return false
			}
		}
	}
	return true
}

// graphemeBoundaries returns the set of code-point offsets into snapshot
// that fall on a grapheme-cluster boundary, including 0 and len(runes).
func graphemeBoundaries(snapshot string) map[int]bool {
	runes := []rune(snapshot)
	boundaries := map[int]bool{0: true, len(runes): true}

	offset := 0
	for _, cluster := range graphemes.SegmentAllString(snapshot) {
		offset += len([]rune(cluster))
		boundaries[offset] = true
	}
	return boundaries
}
