package llmcontext

import (
	"fmt"
	"strconv"
	"strings"
)

// The rendered text is a wire contract: prompts on the consuming side are
// written against these exact section labels, field labels, and separators.
// Do not reword or reorder anything here without versioning the envelope.
const (
	sectionIndex       = "=== CONTEXT INDEX ==="
	sectionContent     = "=== CONTENT ==="
	sectionAttachments = "=== ATTACHMENTS ==="
	sectionTask        = "=== TASK ==="

	chunkOpen  = "[CHUNK]"
	chunkClose = "[/CHUNK]"

	entrySeparator = "---"
)

// RenderContextIndex renders the index section body. The budget manager also
// uses it to measure the index's token cost.
func RenderContextIndex(index []ContextIndexEntry) string {
	if len(index) == 0 {
		return "(no sources)"
	}

	entries := make([]string, len(index))
	for i, entry := range index {
		var b strings.Builder
		fmt.Fprintf(&b, "anchor: %s\n", entry.SourceID)
		fmt.Fprintf(&b, "source_type: %s\n", entry.Kind)
		fmt.Fprintf(&b, "title: %s\n", entry.Title)
		if entry.URL != nil {
			fmt.Fprintf(&b, "url: %s\n", *entry.URL)
		}
		fmt.Fprintf(&b, "content_included: %t", entry.ContentIncluded)
		if entry.Summary != nil {
			fmt.Fprintf(&b, "\nsummary: %s", *entry.Summary)
		}
		if len(entry.PagesAttached) > 0 {
			pages := make([]string, len(entry.PagesAttached))
			for j, page := range entry.PagesAttached {
				pages[j] = strconv.Itoa(page)
			}
			fmt.Fprintf(&b, "\npages_attached: %s", strings.Join(pages, ", "))
		}
		entries[i] = b.String()
	}
	return strings.Join(entries, "\n"+entrySeparator+"\n")
}

func renderChunk(chunk ContextChunk) string {
	var b strings.Builder
	b.WriteString(chunkOpen + "\n")
	fmt.Fprintf(&b, "anchor: %s\n", chunk.Anchor)
	fmt.Fprintf(&b, "extraction_method: %s\n", chunk.Extraction)
	if chunk.Quality != nil {
		fmt.Fprintf(&b, "quality: %s\n", *chunk.Quality)
	}
	if chunk.RelevanceScore != nil {
		fmt.Fprintf(&b, "relevance_score: %s\n", strconv.FormatFloat(*chunk.RelevanceScore, 'g', -1, 64))
	}
	if chunk.Truncated {
		b.WriteString("truncated: true\n")
	}
	b.WriteString("\n")
	b.WriteString(chunk.Text)
	b.WriteString("\n" + chunkClose)
	return b.String()
}

func renderAttachment(attachment AttachmentManifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "anchor: %s\n", attachment.Anchor)
	fmt.Fprintf(&b, "type: %s\n", attachment.Kind)
	fmt.Fprintf(&b, "mime_type: %s\n", attachment.MimeType)
	fmt.Fprintf(&b, "byte_size: %d", attachment.ByteSize)
	return b.String()
}

// RenderEnvelopeAsText serializes an envelope, at any degrade stage, into the
// canonical text handed to the model as the user message body.
func RenderEnvelopeAsText(envelope ContextEnvelope) string {
	var sections []string

	sections = append(sections, sectionIndex+"\n"+RenderContextIndex(envelope.Index))

	content := "(no content)"
	if len(envelope.Chunks) > 0 {
		rendered := make([]string, len(envelope.Chunks))
		for i, chunk := range envelope.Chunks {
			rendered[i] = renderChunk(chunk)
		}
		content = strings.Join(rendered, "\n\n")
	}
	sections = append(sections, sectionContent+"\n"+content)

	var included []AttachmentManifest
	for _, attachment := range envelope.Attachments {
		if attachment.Included {
			included = append(included, attachment)
		}
	}
	if len(included) > 0 {
		rendered := make([]string, len(included))
		for i, attachment := range included {
			rendered[i] = renderAttachment(attachment)
		}
		sections = append(sections, sectionAttachments+"\n"+strings.Join(rendered, "\n"+entrySeparator+"\n"))
	}

	sections = append(sections, sectionTask+"\n"+envelope.Task)

	if len(envelope.Chunks) > 0 {
		sections = append(sections, fmt.Sprintf("Cite sources by anchor, e.g. [%s].", envelope.Chunks[0].Anchor))
	}

	return strings.Join(sections, "\n\n")
}
