package llmcontext

import (
	"fmt"
	"strings"
	"time"

	"github.com/hoangvvo/llm-sdk/context-go/internal/sliceutils"
)

// EstimateTokens estimates the token count of text as ceil(len/4). This is a
// fixed character heuristic, not a tokenizer; budgeting depends on it being
// reproduced exactly, so do not "improve" it per model.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type envelopeOptions struct {
	maxTokens          *int
	includeAttachments bool
}

type EnvelopeOption func(*envelopeOptions)

// WithMaxTokens records the intended token ceiling on the envelope's budget
// state. Building never enforces it; enforcement is ApplyTokenBudget.
func WithMaxTokens(maxTokens int) EnvelopeOption {
	return func(o *envelopeOptions) {
		o.maxTokens = &maxTokens
	}
}

// WithIncludeAttachments controls whether binary attachments are manifested.
// Defaults to true.
func WithIncludeAttachments(include bool) EnvelopeOption {
	return func(o *envelopeOptions) {
		o.includeAttachments = include
	}
}

// BuildContextEnvelope assembles sources and a task into a stage-0 envelope:
// one index entry per source in input order, one chunk per renderable text
// unit, and one manifest per binary artifact.
func BuildContextEnvelope(sources []Source, task string, opts ...EnvelopeOption) ContextEnvelope {
	options := envelopeOptions{includeAttachments: true}
	for _, opt := range opts {
		opt(&options)
	}

	chunks := sliceutils.Flat(sliceutils.Map(sources, buildSourceChunks))

	var attachments []AttachmentManifest
	if options.includeAttachments {
		attachments = sliceutils.Flat(sliceutils.Map(sources, buildSourceAttachments))
	}

	chunked := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		parsed, err := ParseAnchor(chunk.Anchor)
		if err != nil {
			continue
		}
		chunked[parsed.SourceID] = true
	}

	index := make([]ContextIndexEntry, len(sources))
	for i, source := range sources {
		index[i] = buildIndexEntry(source, chunked, options.includeAttachments)
	}

	usedTokens := EstimateTokens(task) + EstimateTokens(RenderContextIndex(index))
	for _, chunk := range chunks {
		usedTokens += chunk.TokenCount
	}

	return ContextEnvelope{
		Version:     EnvelopeVersion,
		CreatedAt:   time.Now().UTC(),
		Sources:     sources,
		Index:       index,
		Chunks:      chunks,
		Attachments: attachments,
		Budget: TokenBudgetState{
			MaxTokens:    options.maxTokens,
			UsedTokens:   usedTokens,
			DegradeStage: 0,
			Cuts:         []BudgetCut{},
		},
		Task: task,
	}
}

func buildIndexEntry(source Source, chunked map[string]bool, includeAttachments bool) ContextIndexEntry {
	info := source.Info()
	entry := ContextIndexEntry{
		SourceID:        info.SourceID,
		Kind:            source.Kind(),
		Title:           info.Title,
		URL:             info.URL,
		ContentIncluded: chunked[info.SourceID],
	}
	if source.PDF != nil && includeAttachments {
		for _, page := range source.PDF.Pages {
			if page.Image != nil {
				entry.PagesAttached = append(entry.PagesAttached, page.Number)
			}
		}
	}
	return entry
}

// buildSourceChunks emits the renderable text units of one source. Webpage,
// note, image, and chatlog sources yield at most one chunk; a PDF yields one
// chunk per page that has text.
func buildSourceChunks(source Source) []ContextChunk {
	info := source.Info()

	switch {
	case source.Webpage != nil:
		if strings.TrimSpace(source.Webpage.Markdown) == "" {
			return nil
		}
		quality := source.Webpage.Quality
		return []ContextChunk{newChunk(info.SourceID, source.Webpage.Markdown, source.Webpage.Extraction, &quality)}

	case source.PDF != nil:
		var chunks []ContextChunk
		for _, page := range source.PDF.Pages {
			if page.Text == nil || strings.TrimSpace(*page.Text) == "" {
				continue
			}
			anchor := NewAnchor(info.SourceID, NewPageLocation(page.Number))
			chunks = append(chunks, newChunk(anchor, *page.Text, ExtractionPDFParse, page.Quality))
		}
		return chunks

	case source.Image != nil:
		if source.Image.AltText == nil || *source.Image.AltText == "" {
			return nil
		}
		return []ContextChunk{newChunk(info.SourceID, *source.Image.AltText, ExtractionAltText, nil)}

	case source.Note != nil:
		if strings.TrimSpace(source.Note.Text) == "" {
			return nil
		}
		return []ContextChunk{newChunk(info.SourceID, source.Note.Text, ExtractionNote, nil)}

	case source.Chatlog != nil:
		if len(source.Chatlog.Messages) == 0 {
			return nil
		}
		return []ContextChunk{newChunk(info.SourceID, renderChatlog(source.Chatlog), ExtractionChatHistory, nil)}

	default:
		return nil
	}
}

func newChunk(anchor, text string, extraction ExtractionMethod, quality *QualityHint) ContextChunk {
	return ContextChunk{
		Anchor:     anchor,
		Text:       text,
		TokenCount: EstimateTokens(text),
		Extraction: extraction,
		Quality:    quality,
	}
}

func renderChatlog(chatlog *ChatlogSource) string {
	turns := sliceutils.Map(chatlog.Messages, func(m ChatMessage) string {
		return fmt.Sprintf("%s: %s", m.Role, m.Content)
	})
	return strings.Join(turns, "\n\n")
}

// buildSourceAttachments emits one manifest per binary artifact of a source,
// all included by default; budgeting may later exclude them.
func buildSourceAttachments(source Source) []AttachmentManifest {
	info := source.Info()

	switch {
	case source.Webpage != nil:
		if source.Webpage.Screenshot == nil {
			return nil
		}
		return []AttachmentManifest{newAttachment(info.SourceID, AttachmentScreenshot, *source.Webpage.Screenshot)}

	case source.PDF != nil:
		var attachments []AttachmentManifest
		if source.PDF.Raw != nil {
			attachments = append(attachments, newAttachment(info.SourceID, AttachmentRawPDF, *source.PDF.Raw))
		}
		for _, page := range source.PDF.Pages {
			if page.Image == nil {
				continue
			}
			anchor := NewAnchor(info.SourceID, NewPageLocation(page.Number))
			attachments = append(attachments, newAttachment(anchor, AttachmentPageImage, *page.Image))
		}
		return attachments

	case source.Image != nil:
		if source.Image.Blob.Data == "" {
			return nil
		}
		return []AttachmentManifest{newAttachment(info.SourceID, AttachmentRawImage, source.Image.Blob)}

	default:
		return nil
	}
}

func newAttachment(anchor string, kind AttachmentKind, blob BinaryBlob) AttachmentManifest {
	return AttachmentManifest{
		Anchor:   anchor,
		Kind:     kind,
		MimeType: blob.MimeType,
		ByteSize: blob.ByteSize,
		Included: true,
	}
}
