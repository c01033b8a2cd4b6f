// Package analysis turns a transcript and silence map into scored clip
// candidates. Everything here is a pure function of its inputs: generating
// windows, scoring them, picking a hook offset, and judging whether the chosen
// span is a meaningful edit of the source.
package analysis
