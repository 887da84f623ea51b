package llmcontext

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ExtractedContent is what the capture layer hands the builder: a typed
// payload plus whatever metadata the extractor attached. Content is either a
// plain string or a structured object, depending on the extractor.
type ExtractedContent struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Content   any            `json:"content"`
	ImageData *string        `json:"image_data,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ContextTabInfo identifies the browser tab a capture came from.
type ContextTabInfo struct {
	TabID string `json:"tab_id"`
}

var pageMarkerRe = regexp.MustCompile(`---\s*Page\s+(\d+)\s*---`)

var (
	userQueryRe     = regexp.MustCompile(`(?s)User Query:?\s*(.*?)\s*(?:Assistant Response|\z)`)
	assistantRespRe = regexp.MustCompile(`(?s)Assistant Response:?\s*(.*?)\s*\z`)
)

// BuildSource normalizes one extracted content item into a Source. It never
// fails: unknown types fall back to a note, and malformed fields degrade to
// the most conservative safe value, because one bad capture must not abort a
// multi-source query.
func BuildSource(extracted ExtractedContent, tab *ContextTabInfo) Source {
	info := SourceInfo{
		SourceID:   ComputeSourceID(extracted.URL, extracted.Content),
		Title:      extracted.Title,
		CapturedAt: time.Now().UTC(),
	}
	if extracted.URL != "" {
		url := extracted.URL
		info.URL = &url
	}
	if tab != nil && tab.TabID != "" {
		tabID := tab.TabID
		info.TabID = &tabID
	}

	switch extracted.Type {
	case "webpage", "html":
		return buildWebpageSource(extracted, info)
	case "pdf":
		return buildPDFSource(extracted, info)
	case "image":
		return buildImageSource(extracted, info)
	case "text":
		if isChatlogContent(extracted) {
			return buildChatlogSource(extracted, info)
		}
		return buildNoteSource(extracted, info)
	default:
		return buildNoteSource(extracted, info)
	}
}

func buildWebpageSource(extracted ExtractedContent, info SourceInfo) Source {
	markdown := contentAsMarkdown(extracted.Content)

	extraction := ExtractionReadability
	if method := metadataString(extracted.Metadata, "extraction_method"); method != "" {
		extraction = ExtractionMethod(method)
	}

	webpage := &WebpageSource{
		SourceInfo: info,
		Markdown:   markdown,
		Extraction: extraction,
		Quality:    AssessQuality(markdown),
	}
	if extracted.ImageData != nil {
		blob := parseImageBlob(*extracted.ImageData, metadataString(extracted.Metadata, "mime_type"))
		webpage.Screenshot = &blob
	}
	return Source{Webpage: webpage}
}

// contentAsMarkdown accepts either a markdown string or the extractor's
// structured form, which carries the body under "mainContent".
func contentAsMarkdown(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case map[string]any:
		if main, ok := c["mainContent"].(string); ok {
			return main
		}
		if _, ok := c["headings"]; ok {
			return ""
		}
		return normalizeContent(content)
	default:
		return normalizeContent(content)
	}
}

func buildPDFSource(extracted ExtractedContent, info SourceInfo) Source {
	var pages []PDFPage

	text := ""
	switch c := extracted.Content.(type) {
	case string:
		text = c
	case map[string]any:
		// Pre-parsed extractor output carries the aggregated text.
		if t, ok := c["text"].(string); ok {
			text = t
		}
	}

	if text != "" {
		pages = append(pages, newTextPage(1, text))
		// Page markers, when they split into more than one page, replace the
		// single aggregated page.
		if marked := splitPageMarkers(text); len(marked) > 1 {
			pages = marked
		}
	}

	pages = mergePageImages(pages, extracted.Metadata)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	pdf := &PDFSource{SourceInfo: info, Pages: pages}
	if raw := metadataString(extracted.Metadata, "raw_data"); raw != "" {
		mime := metadataString(extracted.Metadata, "mime_type")
		if mime == "" {
			mime = "application/pdf"
		}
		blob := parseImageBlob(raw, mime)
		pdf.Raw = &blob
	}
	return Source{PDF: pdf}
}

func newTextPage(number int, text string) PDFPage {
	quality := AssessQuality(text)
	return PDFPage{Number: number, Text: &text, Quality: &quality}
}

// splitPageMarkers splits aggregated PDF text on "--- Page N ---" markers.
func splitPageMarkers(text string) []PDFPage {
	markers := pageMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}

	var pages []PDFPage
	for i, marker := range markers {
		number, err := strconv.Atoi(text[marker[2]:marker[3]])
		if err != nil {
			continue
		}
		start := marker[1]
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		pageText := strings.TrimSpace(text[start:end])
		pages = append(pages, newTextPage(number, pageText))
	}
	return pages
}

// mergePageImages folds page images supplied via metadata into the page list:
// merged into an existing page by number, or appended as image-only pages.
func mergePageImages(pages []PDFPage, metadata map[string]any) []PDFPage {
	raw, ok := metadata["page_images"]
	if !ok {
		return pages
	}
	images, ok := raw.([]any)
	if !ok {
		return pages
	}

	for _, item := range images {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		number := metadataInt(entry, "page")
		data, _ := entry["data"].(string)
		if number <= 0 || data == "" {
			continue
		}
		mime, _ := entry["mime_type"].(string)
		blob := parseImageBlob(data, mime)

		merged := false
		for i := range pages {
			if pages[i].Number == number {
				pages[i].Image = &blob
				merged = true
				break
			}
		}
		if !merged {
			pages = append(pages, PDFPage{Number: number, Image: &blob})
		}
	}
	return pages
}

func buildImageSource(extracted ExtractedContent, info SourceInfo) Source {
	image := &ImageSource{SourceInfo: info}

	if extracted.ImageData != nil && *extracted.ImageData != "" {
		image.Blob = parseImageBlob(*extracted.ImageData, metadataString(extracted.Metadata, "mime_type"))
	} else {
		// A capture without bytes still yields a citable source.
		image.Blob = BinaryBlob{Data: "", MimeType: "image/png", ByteSize: 0}
	}

	if alt, ok := extracted.Content.(string); ok && alt != "" {
		image.AltText = &alt
	}
	return Source{Image: image}
}

func buildNoteSource(extracted ExtractedContent, info SourceInfo) Source {
	text, ok := extracted.Content.(string)
	if !ok {
		text = normalizeContent(extracted.Content)
	}
	return Source{Note: &NoteSource{SourceInfo: info, Text: text}}
}

// isChatlogContent decides whether a text capture is a saved model
// conversation: either the capture pipeline attached a conversation
// identifier, or the text carries the conversation export headings.
//
// The literal substring check will misclassify an ordinary note that happens
// to contain "User Query" or "Assistant Response". Existing capture pipelines
// rely on it, so it stays.
func isChatlogContent(extracted ExtractedContent) bool {
	for _, key := range []string{"persistent_id", "short_id", "slug"} {
		if metadataString(extracted.Metadata, key) != "" {
			return true
		}
	}
	text, ok := extracted.Content.(string)
	if !ok {
		return false
	}
	return strings.Contains(text, "User Query") || strings.Contains(text, "Assistant Response")
}

func buildChatlogSource(extracted ExtractedContent, info SourceInfo) Source {
	text, _ := extracted.Content.(string)

	var messages []ChatMessage
	if m := userQueryRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: strings.TrimSpace(m[1])})
	}
	if m := assistantRespRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		messages = append(messages, ChatMessage{Role: ChatRoleAssistant, Content: strings.TrimSpace(m[1])})
	}
	if len(messages) == 0 && text != "" {
		messages = append(messages, ChatMessage{Role: ChatRoleAssistant, Content: text})
	}

	chatlog := &ChatlogSource{SourceInfo: info, Messages: messages}
	if model := metadataString(extracted.Metadata, "model"); model != "" {
		chatlog.Model = &model
	}
	return Source{Chatlog: chatlog}
}

// Base64ByteSize estimates the decoded size of a base64 string without
// decoding it: floor(len*3/4) minus padding. This figure appears in rendered
// attachment manifests, so the formula is part of the wire behavior.
func Base64ByteSize(data string) int {
	if data == "" {
		return 0
	}
	return len(data)*3/4 - strings.Count(data, "=")
}

// parseImageBlob wraps base64 payloads, accepting both raw base64 and data
// URLs. fallbackMime applies when the payload does not carry its own.
func parseImageBlob(data, fallbackMime string) BinaryBlob {
	mime := fallbackMime
	if strings.HasPrefix(data, "data:") {
		rest := data[len("data:"):]
		if comma := strings.Index(rest, ","); comma >= 0 {
			header := rest[:comma]
			data = rest[comma+1:]
			if semi := strings.Index(header, ";"); semi >= 0 {
				header = header[:semi]
			}
			if header != "" {
				mime = header
			}
		}
	}
	if mime == "" {
		mime = "image/png"
	}
	return BinaryBlob{Data: data, MimeType: mime, ByteSize: Base64ByteSize(data)}
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	s, _ := metadata[key].(string)
	return s
}

func metadataInt(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case float64:
		// JSON numbers decode as float64.
		return int(v)
	default:
		return 0
	}
}
