// Package contexttest provides deterministic capture fixtures for testing
// context assembly, both in this module and in downstream consumers.
package contexttest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	llmcontext "github.com/hoangvvo/llm-sdk/context-go"
)

// TinyPNGBase64 is a 1x1 transparent PNG, small enough to inline in fixtures.
const TinyPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// NewTabInfo returns tab info with a fresh unique id.
func NewTabInfo() *llmcontext.ContextTabInfo {
	return &llmcontext.ContextTabInfo{TabID: uuid.NewString()}
}

// WebpageContent builds a webpage capture with markdown content.
func WebpageContent(title, url, markdown string) llmcontext.ExtractedContent {
	return llmcontext.ExtractedContent{
		Type:    "webpage",
		Title:   title,
		URL:     url,
		Content: markdown,
	}
}

// WebpageContentWithScreenshot builds a webpage capture carrying a PNG
// screenshot as a data URL.
func WebpageContentWithScreenshot(title, url, markdown string) llmcontext.ExtractedContent {
	content := WebpageContent(title, url, markdown)
	screenshot := "data:image/png;base64," + TinyPNGBase64
	content.ImageData = &screenshot
	return content
}

// PDFContent builds a PDF capture whose text uses page markers, one marker
// per given page text.
func PDFContent(title, url string, pages ...string) llmcontext.ExtractedContent {
	var b strings.Builder
	for i, page := range pages {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", i+1, page)
	}
	return llmcontext.ExtractedContent{
		Type:    "pdf",
		Title:   title,
		URL:     url,
		Content: b.String(),
	}
}

// WithPageImage attaches a page image to a PDF capture's metadata.
func WithPageImage(content llmcontext.ExtractedContent, page int) llmcontext.ExtractedContent {
	if content.Metadata == nil {
		content.Metadata = map[string]any{}
	}
	images, _ := content.Metadata["page_images"].([]any)
	content.Metadata["page_images"] = append(images, map[string]any{
		"page":      page,
		"data":      TinyPNGBase64,
		"mime_type": "image/png",
	})
	return content
}

// NoteContent builds a free-text note capture.
func NoteContent(title, text string) llmcontext.ExtractedContent {
	return llmcontext.ExtractedContent{
		Type:    "text",
		Title:   title,
		Content: text,
	}
}

// ChatlogContent builds a text capture in the conversation export format the
// builder detects.
func ChatlogContent(title, userQuery, assistantResponse string) llmcontext.ExtractedContent {
	return llmcontext.ExtractedContent{
		Type:    "text",
		Title:   title,
		Content: fmt.Sprintf("User Query: %s\n\nAssistant Response: %s", userQuery, assistantResponse),
	}
}

// ImageContent builds an image capture with alt text and inline PNG bytes.
func ImageContent(title, altText string) llmcontext.ExtractedContent {
	data := TinyPNGBase64
	return llmcontext.ExtractedContent{
		Type:      "image",
		Title:     title,
		Content:   altText,
		ImageData: &data,
		Metadata:  map[string]any{"mime_type": "image/png"},
	}
}
