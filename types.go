package llmcontext

import (
	"encoding/json"
	"fmt"
	"time"
)

// QualityHint is a heuristic classification of extracted text quality.
type QualityHint string

const (
	QualityGood    QualityHint = "good"
	QualityMixed   QualityHint = "mixed"
	QualityLow     QualityHint = "low"
	QualityOCRLike QualityHint = "ocr_like"
)

// ExtractionMethod describes how the text of a source or chunk was obtained.
type ExtractionMethod string

const (
	ExtractionReadability ExtractionMethod = "readability"
	ExtractionRawText     ExtractionMethod = "raw_text"
	ExtractionPDFParse    ExtractionMethod = "pdf_parse"
	ExtractionAltText     ExtractionMethod = "alt_text"
	ExtractionNote        ExtractionMethod = "note"
	ExtractionChatHistory ExtractionMethod = "chat_history"
)

// BinaryBlob holds a base64-encoded binary payload together with its mime type.
// ByteSize is derived from the base64 length, never by re-decoding.
type BinaryBlob struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
	ByteSize int    `json:"byte_size"`
}

// SourceInfo carries the fields shared by every source variant.
type SourceInfo struct {
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	URL        *string   `json:"url,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	TabID      *string   `json:"tab_id,omitempty"`
}

// Source represents one normalized captured content item.
type Source struct {
	Webpage *WebpageSource `json:"-"`
	PDF     *PDFSource     `json:"-"`
	Image   *ImageSource   `json:"-"`
	Note    *NoteSource    `json:"-"`
	Chatlog *ChatlogSource `json:"-"`
}

type SourceKind string

const (
	SourceKindWebpage SourceKind = "webpage"
	SourceKindPDF     SourceKind = "pdf"
	SourceKindImage   SourceKind = "image"
	SourceKindNote    SourceKind = "note"
	SourceKindChatlog SourceKind = "chatlog"
)

func (s Source) Kind() SourceKind {
	switch {
	case s.Webpage != nil:
		return SourceKindWebpage
	case s.PDF != nil:
		return SourceKindPDF
	case s.Image != nil:
		return SourceKindImage
	case s.Note != nil:
		return SourceKindNote
	case s.Chatlog != nil:
		return SourceKindChatlog
	default:
		return ""
	}
}

// Info returns the shared fields of whichever variant is set.
func (s Source) Info() *SourceInfo {
	switch {
	case s.Webpage != nil:
		return &s.Webpage.SourceInfo
	case s.PDF != nil:
		return &s.PDF.SourceInfo
	case s.Image != nil:
		return &s.Image.SourceInfo
	case s.Note != nil:
		return &s.Note.SourceInfo
	case s.Chatlog != nil:
		return &s.Chatlog.SourceInfo
	default:
		return nil
	}
}

// WebpageSource is a captured webpage reduced to markdown.
type WebpageSource struct {
	SourceInfo
	Markdown   string           `json:"markdown"`
	Extraction ExtractionMethod `json:"extraction"`
	Quality    QualityHint      `json:"quality"`
	Screenshot *BinaryBlob      `json:"screenshot,omitempty"`
}

// PDFSource is a captured PDF as an ordered list of pages, optionally with
// the raw document bytes for vision-capable consumers.
type PDFSource struct {
	SourceInfo
	Pages []PDFPage   `json:"pages"`
	Raw   *BinaryBlob `json:"raw,omitempty"`
}

// PDFPage is one page of a PDF. Text and Image are both optional; an
// image-only page still counts toward the page ordering.
type PDFPage struct {
	Number  int          `json:"number"`
	Text    *string      `json:"text,omitempty"`
	Quality *QualityHint `json:"quality,omitempty"`
	Image   *BinaryBlob  `json:"image,omitempty"`
}

// ImageSource is a captured standalone image.
type ImageSource struct {
	SourceInfo
	Blob    BinaryBlob `json:"blob"`
	AltText *string    `json:"alt_text,omitempty"`
}

// NoteSource is free-form text captured by the user.
type NoteSource struct {
	SourceInfo
	Text string `json:"text"`
}

// ChatlogSource is a prior model conversation.
type ChatlogSource struct {
	SourceInfo
	Messages []ChatMessage `json:"messages"`
	Model    *string       `json:"model,omitempty"`
}

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a chatlog source.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// MarshalJSON implements custom JSON marshaling for Source
func (s Source) MarshalJSON() ([]byte, error) {
	if s.Webpage != nil {
		return json.Marshal(struct {
			Kind SourceKind `json:"kind"`
			*WebpageSource
		}{
			Kind:          SourceKindWebpage,
			WebpageSource: s.Webpage,
		})
	}
	if s.PDF != nil {
		return json.Marshal(struct {
			Kind SourceKind `json:"kind"`
			*PDFSource
		}{
			Kind:      SourceKindPDF,
			PDFSource: s.PDF,
		})
	}
	if s.Image != nil {
		return json.Marshal(struct {
			Kind SourceKind `json:"kind"`
			*ImageSource
		}{
			Kind:        SourceKindImage,
			ImageSource: s.Image,
		})
	}
	if s.Note != nil {
		return json.Marshal(struct {
			Kind SourceKind `json:"kind"`
			*NoteSource
		}{
			Kind:       SourceKindNote,
			NoteSource: s.Note,
		})
	}
	if s.Chatlog != nil {
		return json.Marshal(struct {
			Kind SourceKind `json:"kind"`
			*ChatlogSource
		}{
			Kind:          SourceKindChatlog,
			ChatlogSource: s.Chatlog,
		})
	}
	return nil, fmt.Errorf("source has no content")
}

// UnmarshalJSON implements custom JSON unmarshaling for Source
func (s *Source) UnmarshalJSON(data []byte) error {
	var temp struct {
		Kind SourceKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	switch temp.Kind {
	case SourceKindWebpage:
		var w WebpageSource
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		s.Webpage = &w
	case SourceKindPDF:
		var p PDFSource
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		s.PDF = &p
	case SourceKindImage:
		var i ImageSource
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		s.Image = &i
	case SourceKindNote:
		var n NoteSource
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s.Note = &n
	case SourceKindChatlog:
		var c ChatlogSource
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		s.Chatlog = &c
	default:
		return fmt.Errorf("unknown source kind: %s", temp.Kind)
	}

	return nil
}

// EnvelopeVersion is the current ContextEnvelope schema version.
const EnvelopeVersion = "1"

// ContextEnvelope is the complete payload for one query: index + chunks +
// attachments + budget + task. Envelopes are values; every transformation
// returns a new envelope and never mutates its input.
type ContextEnvelope struct {
	Version     string               `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
	Sources     []Source             `json:"sources"`
	Index       []ContextIndexEntry  `json:"index"`
	Chunks      []ContextChunk       `json:"chunks"`
	Attachments []AttachmentManifest `json:"attachments"`
	Budget      TokenBudgetState     `json:"budget"`
	Task        string               `json:"task"`
}

// ContextIndexEntry is the per-source line of the context index. The index
// survives every degrade stage so the model can always cite a source whose
// content no longer fits.
type ContextIndexEntry struct {
	SourceID        string     `json:"source_id"`
	Kind            SourceKind `json:"kind"`
	Title           string     `json:"title"`
	URL             *string    `json:"url,omitempty"`
	ContentIncluded bool       `json:"content_included"`
	Summary         *string    `json:"summary,omitempty"`
	// PagesAttached lists PDF page numbers that have a page image attached.
	PagesAttached []int `json:"pages_attached,omitempty"`
}

// ContextChunk is one renderable unit of text bound to exactly one anchor.
type ContextChunk struct {
	Anchor         string           `json:"anchor"`
	Text           string           `json:"text"`
	TokenCount     int              `json:"token_count"`
	Extraction     ExtractionMethod `json:"extraction_method"`
	Quality        *QualityHint     `json:"quality,omitempty"`
	RelevanceScore *float64         `json:"relevance_score,omitempty"`
	Truncated      bool             `json:"truncated,omitempty"`
}

type AttachmentKind string

const (
	AttachmentScreenshot AttachmentKind = "screenshot"
	AttachmentRawPDF     AttachmentKind = "raw_pdf"
	AttachmentPageImage  AttachmentKind = "page_image"
	AttachmentRawImage   AttachmentKind = "raw_image"
)

// AttachmentManifest references one binary artifact by anchor.
type AttachmentManifest struct {
	Anchor   string         `json:"anchor"`
	Kind     AttachmentKind `json:"kind"`
	MimeType string         `json:"mime_type"`
	ByteSize int            `json:"byte_size"`
	Included bool           `json:"included"`
}

// CutReason is a machine-readable code for why a chunk was cut during
// budgeting.
type CutReason string

const (
	CutChunkRemoved   CutReason = "chunk_removed"
	CutSummarized     CutReason = "summarized"
	CutStage3TopK     CutReason = "stage3_topk"
	CutChunkTruncated CutReason = "chunk_truncated"
	CutStage5         CutReason = "stage5_index_only"
)

// BudgetCut is one entry of the budget audit log, recording the chunk's
// anchor and original token count.
type BudgetCut struct {
	Anchor string    `json:"anchor"`
	Tokens int       `json:"tokens"`
	Reason CutReason `json:"reason"`
}

// TokenBudgetState tracks the budget accounting of an envelope. Cuts is
// append-only across degrade passes.
type TokenBudgetState struct {
	MaxTokens    *int        `json:"max_tokens,omitempty"`
	UsedTokens   int         `json:"used_tokens"`
	DegradeStage int         `json:"degrade_stage"`
	Cuts         []BudgetCut `json:"cuts"`
}
