package llmcontext_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	llmcontext "github.com/hoangvvo/llm-sdk/context-go"
)

func TestSourceJSONRoundTrip(t *testing.T) {
	captured := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	url := "https://example.com"
	model := "test-model"

	tests := []struct {
		name   string
		source llmcontext.Source
		kind   string
	}{
		{
			name: "webpage",
			source: llmcontext.Source{Webpage: &llmcontext.WebpageSource{
				SourceInfo: llmcontext.SourceInfo{SourceID: "src:0a1b2c3d", Title: "Doc", URL: &url, CapturedAt: captured},
				Markdown:   "Body",
				Extraction: llmcontext.ExtractionReadability,
				Quality:    llmcontext.QualityGood,
			}},
			kind: "webpage",
		},
		{
			name: "chatlog",
			source: llmcontext.Source{Chatlog: &llmcontext.ChatlogSource{
				SourceInfo: llmcontext.SourceInfo{SourceID: "src:11223344", Title: "Chat", CapturedAt: captured},
				Messages: []llmcontext.ChatMessage{
					{Role: llmcontext.ChatRoleUser, Content: "hi"},
					{Role: llmcontext.ChatRoleAssistant, Content: "hello"},
				},
				Model: &model,
			}},
			kind: "chatlog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.source)
			if err != nil {
				t.Fatalf("Marshal returned error: %v", err)
			}

			var discriminant struct {
				Kind string `json:"kind"`
			}
			if err := json.Unmarshal(data, &discriminant); err != nil {
				t.Fatalf("Unmarshal discriminant: %v", err)
			}
			if discriminant.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", discriminant.Kind, tt.kind)
			}

			var decoded llmcontext.Source
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			if diff := cmp.Diff(tt.source, decoded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSourceUnmarshalUnknownKind(t *testing.T) {
	var source llmcontext.Source
	if err := json.Unmarshal([]byte(`{"kind":"spreadsheet"}`), &source); err == nil {
		t.Error("expected error for unknown source kind")
	}
}

func TestAnchorLocationJSONWireForm(t *testing.T) {
	location := llmcontext.NewPageLocation(3)
	data, err := json.Marshal(location)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `"p=3"` {
		t.Errorf("marshaled = %s, want %q", data, `"p=3"`)
	}

	var decoded llmcontext.AnchorLocation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if diff := cmp.Diff(*location, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
