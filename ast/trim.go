package ast

import (
	"strings"
	"sync"
)

// Adjacency classifies what sits next to a text span on one side.
type Adjacency int

const (
	// AdjacentNone means the span borders the template edge.
	AdjacentNone Adjacency = iota
	// AdjacentTag means the span borders a {% %} tag.
	AdjacentTag
	// AdjacentOutput means the span borders a {{ }} output.
	AdjacentOutput
)

// TrimmingPolicy controls which adjacencies trigger whitespace trimming on
// text spans and how much is consumed. Greedy trimming removes all adjacent
// whitespace; non-greedy trimming stops at the first newline, preserving one
// line break per trimmed side.
type TrimmingPolicy struct {
	TagLeft     bool // trim a span's left edge when its left neighbor is a tag
	TagRight    bool // trim a span's right edge when its right neighbor is a tag
	OutputLeft  bool // trim a span's left edge when its left neighbor is an output
	OutputRight bool // trim a span's right edge when its right neighbor is an output
	Greedy      bool
}

// Text is a raw template text span. The visible slice is computed lazily on
// first use and cached; concurrent first-use renders converge on one result.
type Text struct {
	Raw string

	// TrimLeft / TrimRight are explicit trim markers set by the parser
	// ({{- and -}}); they force trimming regardless of policy.
	TrimLeft  bool
	TrimRight bool

	// Left / Right classify the neighboring construct on each side.
	Left  Adjacency
	Right Adjacency

	once    sync.Once
	trimmed string
}

func (t *Text) node() {}
func (t *Text) stmt() {}

// Resolved returns the visible slice of the span under the given policy.
// The first caller's policy wins; subsequent calls return the cached result.
// Rendering options are fixed before any render begins, so every caller
// observes the same policy in practice.
func (t *Text) Resolved(policy TrimmingPolicy) string {
	t.once.Do(func() {
		t.trimmed = trim(t.Raw, policy, t.trimLeft(policy), t.trimRight(policy))
	})
	return t.trimmed
}

func (t *Text) trimLeft(policy TrimmingPolicy) bool {
	if t.TrimLeft {
		return true
	}
	switch t.Left {
	case AdjacentTag:
		return policy.TagLeft
	case AdjacentOutput:
		return policy.OutputLeft
	}
	return false
}

func (t *Text) trimRight(policy TrimmingPolicy) bool {
	if t.TrimRight {
		return true
	}
	switch t.Right {
	case AdjacentTag:
		return policy.TagRight
	case AdjacentOutput:
		return policy.OutputRight
	}
	return false
}

const (
	greedyCutset  = " \t\r\n"
	minimalCutset = " \t\r"
)

func trim(s string, policy TrimmingPolicy, left, right bool) string {
	cutset := minimalCutset
	if policy.Greedy {
		cutset = greedyCutset
	}
	if left {
		s = strings.TrimLeft(s, cutset)
	}
	if right {
		s = strings.TrimRight(s, cutset)
	}
	return s
}
