package ast

import (
	"sync"
	"testing"
)

func TestResolvedMinimal(t *testing.T) {
	tests := []struct {
		name string
		text Text
		want string
	}{
		{
			name: "both sides keep one newline",
			text: Text{Raw: "  \n  hi  \n  ", TrimLeft: true, TrimRight: true},
			want: "\n  hi  \n",
		},
		{
			name: "left only",
			text: Text{Raw: "   hi", TrimLeft: true},
			want: "hi",
		},
		{
			name: "right stops at newline",
			text: Text{Raw: "hi\n\t ", TrimRight: true},
			want: "hi\n",
		},
		{
			name: "no markers no trimming",
			text: Text{Raw: "  hi  "},
			want: "  hi  ",
		},
	}
	for i := range tests {
		tt := &tests[i]
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.text.Resolved(TrimmingPolicy{}); got != tt.want {
				t.Errorf("Resolved() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvedGreedy(t *testing.T) {
	text := Text{Raw: "  \n  hi  \n  ", TrimLeft: true, TrimRight: true}
	policy := TrimmingPolicy{Greedy: true}
	if got := text.Resolved(policy); got != "hi" {
		t.Errorf("Resolved() = %q, want %q", got, "hi")
	}
}

func TestResolvedPolicyAdjacency(t *testing.T) {
	policy := TrimmingPolicy{TagLeft: true, TagRight: true}

	tag := Text{Raw: "  a  ", Left: AdjacentTag, Right: AdjacentTag}
	if got := tag.Resolved(policy); got != "a" {
		t.Errorf("tag-adjacent span = %q, want %q", got, "a")
	}

	// the policy enables tag trimming only; output neighbors are untouched
	output := Text{Raw: "  a  ", Left: AdjacentOutput, Right: AdjacentOutput}
	if got := output.Resolved(policy); got != "  a  " {
		t.Errorf("output-adjacent span = %q, want untouched", got)
	}

	edge := Text{Raw: "  a  ", Left: AdjacentNone, Right: AdjacentNone}
	if got := edge.Resolved(policy); got != "  a  " {
		t.Errorf("edge span = %q, want untouched", got)
	}
}

func TestResolvedExplicitMarkerOverridesPolicy(t *testing.T) {
	text := Text{Raw: "  a", TrimLeft: true, Left: AdjacentOutput}
	if got := text.Resolved(TrimmingPolicy{}); got != "a" {
		t.Errorf("explicit marker should trim regardless of policy, got %q", got)
	}
}

func TestResolvedCachesFirstResult(t *testing.T) {
	text := Text{Raw: "  a  ", TrimLeft: true, TrimRight: true}
	first := text.Resolved(TrimmingPolicy{})
	again := text.Resolved(TrimmingPolicy{Greedy: true})
	if first != again {
		t.Errorf("second call returned %q, want cached %q", again, first)
	}
}

func TestResolvedConcurrentFirstUse(t *testing.T) {
	text := Text{Raw: "  \n  hi  \n  ", TrimLeft: true, TrimRight: true}
	const workers = 16
	results := make([]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = text.Resolved(TrimmingPolicy{})
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != "\n  hi  \n" {
			t.Errorf("worker %d got %q", i, got)
		}
	}
}
