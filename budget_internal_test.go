package llmcontext

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// stageTopK is exercised directly: in the full ladder its input is already at
// the minChunks floor, so it passes survivors through unchanged there.
func TestStageTopK(t *testing.T) {
	scores := []float64{0.9, 0.5, 0.8}
	chunks := []ContextChunk{
		{Anchor: "src:aaaaaaaa", TokenCount: 10, RelevanceScore: &scores[0]},
		{Anchor: "src:bbbbbbbb", TokenCount: 20, RelevanceScore: &scores[1]},
		{Anchor: "src:cccccccc", TokenCount: 30, RelevanceScore: &scores[2]},
	}

	survivors, cuts := stageTopK(chunks, nil, 2)

	var anchors []string
	for _, chunk := range survivors {
		anchors = append(anchors, chunk.Anchor)
	}
	// Survivors keep input order even though ranking picked them.
	if diff := cmp.Diff([]string{"src:aaaaaaaa", "src:cccccccc"}, anchors); diff != "" {
		t.Errorf("survivors mismatch (-want +got):\n%s", diff)
	}

	want := []BudgetCut{{Anchor: "src:bbbbbbbb", Tokens: 20, Reason: CutStage3TopK}}
	if diff := cmp.Diff(want, cuts); diff != "" {
		t.Errorf("cuts mismatch (-want +got):\n%s", diff)
	}
}

func TestStageTopKFloorsAtOne(t *testing.T) {
	chunks := []ContextChunk{
		{Anchor: "src:aaaaaaaa", TokenCount: 10},
		{Anchor: "src:bbbbbbbb", TokenCount: 20},
	}

	survivors, _ := stageTopK(chunks, nil, 0)
	if len(survivors) != 1 {
		t.Errorf("got %d survivors, want 1", len(survivors))
	}
}

func TestRankByRelevanceMissingScoreRanksLast(t *testing.T) {
	score := 0.3
	chunks := []ContextChunk{
		{Anchor: "src:aaaaaaaa"},
		{Anchor: "src:bbbbbbbb", RelevanceScore: &score},
	}

	ranked := rankByRelevance(chunks)
	if ranked[0].Anchor != "src:bbbbbbbb" {
		t.Errorf("first ranked = %q, want the scored chunk", ranked[0].Anchor)
	}
	if chunks[0].Anchor != "src:aaaaaaaa" {
		t.Error("rankByRelevance reordered its input")
	}
}
