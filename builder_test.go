package llmcontext_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	llmcontext "github.com/hoangvvo/llm-sdk/context-go"
)

func TestBuildSourceWebpage(t *testing.T) {
	content := "The annual report covers revenue growth across all regions in detail."
	extracted := llmcontext.ExtractedContent{
		Type:    "webpage",
		Title:   "Annual Report",
		URL:     "https://example.com/report",
		Content: content,
	}

	source := llmcontext.BuildSource(extracted, &llmcontext.ContextTabInfo{TabID: "tab-1"})
	if source.Kind() != llmcontext.SourceKindWebpage {
		t.Fatalf("kind = %q, want %q", source.Kind(), llmcontext.SourceKindWebpage)
	}

	webpage := source.Webpage
	if webpage.Markdown != content {
		t.Errorf("markdown = %q, want %q", webpage.Markdown, content)
	}
	if webpage.Extraction != llmcontext.ExtractionReadability {
		t.Errorf("extraction = %q, want %q", webpage.Extraction, llmcontext.ExtractionReadability)
	}
	if webpage.Quality != llmcontext.QualityGood {
		t.Errorf("quality = %q, want %q", webpage.Quality, llmcontext.QualityGood)
	}

	info := source.Info()
	wantID := llmcontext.ComputeSourceID(extracted.URL, extracted.Content)
	if info.SourceID != wantID {
		t.Errorf("source id = %q, want %q", info.SourceID, wantID)
	}
	if info.URL == nil || *info.URL != extracted.URL {
		t.Errorf("url = %v, want %q", info.URL, extracted.URL)
	}
	if info.TabID == nil || *info.TabID != "tab-1" {
		t.Errorf("tab id = %v, want %q", info.TabID, "tab-1")
	}
	if info.CapturedAt.IsZero() {
		t.Error("captured_at is zero")
	}
}

func TestBuildSourceWebpageStructuredContent(t *testing.T) {
	extracted := llmcontext.ExtractedContent{
		Type:  "webpage",
		Title: "Structured",
		Content: map[string]any{
			"mainContent": "Body text pulled out of the extractor payload.",
			"headings":    []any{"Intro"},
		},
	}

	source := llmcontext.BuildSource(extracted, nil)
	if source.Webpage.Markdown != "Body text pulled out of the extractor payload." {
		t.Errorf("markdown = %q", source.Webpage.Markdown)
	}
	if source.Info().URL != nil {
		t.Errorf("url = %v, want nil", source.Info().URL)
	}
}

func TestBuildSourceWebpageScreenshot(t *testing.T) {
	imageData := "data:image/jpeg;base64,QUJDRA=="
	extracted := llmcontext.ExtractedContent{
		Type:      "webpage",
		Title:     "With Screenshot",
		URL:       "https://example.com",
		Content:   "Short page body with enough ordinary words to read well.",
		ImageData: &imageData,
	}

	source := llmcontext.BuildSource(extracted, nil)
	screenshot := source.Webpage.Screenshot
	if screenshot == nil {
		t.Fatal("expected screenshot blob")
	}
	want := llmcontext.BinaryBlob{Data: "QUJDRA==", MimeType: "image/jpeg", ByteSize: 4}
	if diff := cmp.Diff(want, *screenshot); diff != "" {
		t.Errorf("screenshot mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSourcePDFPageMarkers(t *testing.T) {
	extracted := llmcontext.ExtractedContent{
		Type:    "pdf",
		Title:   "Paper",
		URL:     "https://example.com/paper.pdf",
		Content: "--- Page 1 ---\nAbstract of the paper goes here.\n--- Page 2 ---\nMethods.",
	}

	source := llmcontext.BuildSource(extracted, nil)
	if source.Kind() != llmcontext.SourceKindPDF {
		t.Fatalf("kind = %q, want %q", source.Kind(), llmcontext.SourceKindPDF)
	}

	pages := source.PDF.Pages
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].Number != 1 || pages[1].Number != 2 {
		t.Errorf("page numbers = %d, %d, want 1, 2", pages[0].Number, pages[1].Number)
	}
	if pages[0].Text == nil || *pages[0].Text != "Abstract of the paper goes here." {
		t.Errorf("page 1 text = %v", pages[0].Text)
	}
	if pages[1].Text == nil || *pages[1].Text != "Methods." {
		t.Errorf("page 2 text = %v", pages[1].Text)
	}
	if pages[0].Quality == nil {
		t.Error("page 1 has no quality hint")
	}
}

func TestBuildSourcePDFWithoutMarkers(t *testing.T) {
	extracted := llmcontext.ExtractedContent{
		Type:    "pdf",
		Title:   "Flat",
		Content: "A single run of extracted text with no page structure at all.",
	}

	pages := llmcontext.BuildSource(extracted, nil).PDF.Pages
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("page number = %d, want 1", pages[0].Number)
	}
	if pages[0].Text == nil || *pages[0].Text != extracted.Content {
		t.Errorf("page text = %v", pages[0].Text)
	}
}

func TestBuildSourcePDFPreParsed(t *testing.T) {
	extracted := llmcontext.ExtractedContent{
		Type:    "pdf",
		Title:   "Pre-parsed",
		Content: map[string]any{"text": "Aggregated text from the pdf extractor."},
	}

	pages := llmcontext.BuildSource(extracted, nil).PDF.Pages
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].Text == nil || *pages[0].Text != "Aggregated text from the pdf extractor." {
		t.Errorf("page text = %v", pages[0].Text)
	}
}

func TestBuildSourcePDFPageImages(t *testing.T) {
	extracted := llmcontext.ExtractedContent{
		Type:    "pdf",
		Title:   "Scanned",
		Content: "--- Page 1 ---\nIntro text.\n--- Page 2 ---\nBody text.",
		Metadata: map[string]any{
			"page_images": []any{
				map[string]any{"page": float64(2), "data": "QUJD", "mime_type": "image/png"},
				map[string]any{"page": float64(3), "data": "REVG"},
			},
		},
	}

	pages := llmcontext.BuildSource(extracted, nil).PDF.Pages
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for i, want := range []int{1, 2, 3} {
		if pages[i].Number != want {
			t.Errorf("pages[%d].Number = %d, want %d", i, pages[i].Number, want)
		}
	}
	if pages[1].Image == nil || pages[1].Image.Data != "QUJD" {
		t.Errorf("page 2 image = %v, want merged blob", pages[1].Image)
	}
	if pages[1].Text == nil {
		t.Error("page 2 lost its text when the image merged in")
	}
	if pages[2].Text != nil {
		t.Errorf("page 3 text = %v, want image-only page", pages[2].Text)
	}
	if pages[2].Image == nil || pages[2].Image.MimeType != "image/png" {
		t.Errorf("page 3 image = %v, want default mime", pages[2].Image)
	}
}

func TestBuildSourcePDFRawData(t *testing.T) {
	extracted := llmcontext.ExtractedContent{
		Type:     "pdf",
		Title:    "Raw",
		Content:  "Some text.",
		Metadata: map[string]any{"raw_data": "UERGUERG"},
	}

	raw := llmcontext.BuildSource(extracted, nil).PDF.Raw
	if raw == nil {
		t.Fatal("expected raw blob")
	}
	if raw.MimeType != "application/pdf" {
		t.Errorf("mime = %q, want %q", raw.MimeType, "application/pdf")
	}
	if raw.ByteSize != 6 {
		t.Errorf("byte size = %d, want 6", raw.ByteSize)
	}
}

func TestBuildSourceImage(t *testing.T) {
	imageData := "QUJDREVG"
	extracted := llmcontext.ExtractedContent{
		Type:      "image",
		Title:     "Diagram",
		Content:   "Architecture diagram of the capture pipeline",
		ImageData: &imageData,
		Metadata:  map[string]any{"mime_type": "image/webp"},
	}

	source := llmcontext.BuildSource(extracted, nil)
	image := source.Image
	if image.Blob.MimeType != "image/webp" || image.Blob.ByteSize != 6 {
		t.Errorf("blob = %+v", image.Blob)
	}
	if image.AltText == nil || *image.AltText != "Architecture diagram of the capture pipeline" {
		t.Errorf("alt text = %v", image.AltText)
	}
}

func TestBuildSourceImageWithoutData(t *testing.T) {
	source := llmcontext.BuildSource(llmcontext.ExtractedContent{Type: "image", Title: "Missing"}, nil)
	want := llmcontext.BinaryBlob{Data: "", MimeType: "image/png", ByteSize: 0}
	if diff := cmp.Diff(want, source.Image.Blob); diff != "" {
		t.Errorf("placeholder blob mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSourceNote(t *testing.T) {
	source := llmcontext.BuildSource(llmcontext.ExtractedContent{
		Type:    "text",
		Title:   "Scratch",
		Content: "Remember to re-run the benchmark on the staging box.",
	}, nil)
	if source.Kind() != llmcontext.SourceKindNote {
		t.Fatalf("kind = %q, want %q", source.Kind(), llmcontext.SourceKindNote)
	}
	if source.Note.Text != "Remember to re-run the benchmark on the staging box." {
		t.Errorf("text = %q", source.Note.Text)
	}
}

func TestBuildSourceUnknownTypeFallsBackToNote(t *testing.T) {
	source := llmcontext.BuildSource(llmcontext.ExtractedContent{
		Type:    "spreadsheet",
		Title:   "Cells",
		Content: "a,b,c",
	}, nil)
	if source.Kind() != llmcontext.SourceKindNote {
		t.Errorf("kind = %q, want %q", source.Kind(), llmcontext.SourceKindNote)
	}
}

func TestBuildSourceChatlog(t *testing.T) {
	source := llmcontext.BuildSource(llmcontext.ExtractedContent{
		Type:     "text",
		Title:    "Saved Conversation",
		Content:  "User Query: What is a goroutine?\n\nAssistant Response: A lightweight thread managed by the runtime.",
		Metadata: map[string]any{"slug": "what-is-a-goroutine", "model": "test-model"},
	}, nil)

	if source.Kind() != llmcontext.SourceKindChatlog {
		t.Fatalf("kind = %q, want %q", source.Kind(), llmcontext.SourceKindChatlog)
	}

	want := []llmcontext.ChatMessage{
		{Role: llmcontext.ChatRoleUser, Content: "What is a goroutine?"},
		{Role: llmcontext.ChatRoleAssistant, Content: "A lightweight thread managed by the runtime."},
	}
	if diff := cmp.Diff(want, source.Chatlog.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if source.Chatlog.Model == nil || *source.Chatlog.Model != "test-model" {
		t.Errorf("model = %v", source.Chatlog.Model)
	}
}

func TestBuildSourceChatlogDetectedByContent(t *testing.T) {
	source := llmcontext.BuildSource(llmcontext.ExtractedContent{
		Type:    "text",
		Title:   "Pasted Conversation",
		Content: "User Query: Why is the sky blue?\n\nAssistant Response: Rayleigh scattering.",
	}, nil)
	if source.Kind() != llmcontext.SourceKindChatlog {
		t.Errorf("kind = %q, want %q", source.Kind(), llmcontext.SourceKindChatlog)
	}
}

func TestBuildSourceChatlogUnparseableFallsBackToSingleMessage(t *testing.T) {
	source := llmcontext.BuildSource(llmcontext.ExtractedContent{
		Type:     "text",
		Title:    "Odd Export",
		Content:  "A transcript in some other export format entirely.",
		Metadata: map[string]any{"persistent_id": "abc123"},
	}, nil)

	messages := source.Chatlog.Messages
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if messages[0].Role != llmcontext.ChatRoleAssistant {
		t.Errorf("role = %q, want %q", messages[0].Role, llmcontext.ChatRoleAssistant)
	}
	if messages[0].Content != "A transcript in some other export format entirely." {
		t.Errorf("content = %q", messages[0].Content)
	}
}

func TestBase64ByteSize(t *testing.T) {
	tests := []struct {
		data string
		want int
	}{
		{"", 0},
		{"QUJD", 3},
		{"QQ==", 1},
		{"QUI=", 2},
		{"QUJDRA==", 4},
	}
	for _, tt := range tests {
		if got := llmcontext.Base64ByteSize(tt.data); got != tt.want {
			t.Errorf("Base64ByteSize(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}
