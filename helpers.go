package llmcontext

import "time"

// NewSourceInfo computes the content address for a capture and fills the
// shared fields. The same {url, content} pair always yields the same id.
func NewSourceInfo(title, url string, content any) SourceInfo {
	info := SourceInfo{
		SourceID:   ComputeSourceID(url, content),
		Title:      title,
		CapturedAt: time.Now().UTC(),
	}
	if url != "" {
		u := url
		info.URL = &u
	}
	return info
}

// NewWebpageSource creates a webpage source; quality is assessed from the
// markdown unless overridden.
func NewWebpageSource(info SourceInfo, markdown string, opts ...WebpageSourceOption) Source {
	webpage := &WebpageSource{
		SourceInfo: info,
		Markdown:   markdown,
		Extraction: ExtractionReadability,
		Quality:    AssessQuality(markdown),
	}
	for _, opt := range opts {
		opt(webpage)
	}
	return Source{Webpage: webpage}
}

type WebpageSourceOption func(*WebpageSource)

func WithWebpageExtraction(method ExtractionMethod) WebpageSourceOption {
	return func(w *WebpageSource) {
		w.Extraction = method
	}
}

func WithWebpageScreenshot(blob BinaryBlob) WebpageSourceOption {
	return func(w *WebpageSource) {
		w.Screenshot = &blob
	}
}

// NewPDFSource creates a PDF source from already ordered pages.
func NewPDFSource(info SourceInfo, pages []PDFPage, opts ...PDFSourceOption) Source {
	pdf := &PDFSource{
		SourceInfo: info,
		Pages:      pages,
	}
	for _, opt := range opts {
		opt(pdf)
	}
	return Source{PDF: pdf}
}

type PDFSourceOption func(*PDFSource)

func WithPDFRaw(blob BinaryBlob) PDFSourceOption {
	return func(p *PDFSource) {
		p.Raw = &blob
	}
}

// NewTextPage creates a PDF page with text; quality is assessed from the text.
func NewTextPage(number int, text string) PDFPage {
	return newTextPage(number, text)
}

// NewImagePage creates an image-only PDF page.
func NewImagePage(number int, image BinaryBlob) PDFPage {
	return PDFPage{Number: number, Image: &image}
}

// NewImageSource creates an image source.
func NewImageSource(info SourceInfo, blob BinaryBlob, opts ...ImageSourceOption) Source {
	image := &ImageSource{
		SourceInfo: info,
		Blob:       blob,
	}
	for _, opt := range opts {
		opt(image)
	}
	return Source{Image: image}
}

type ImageSourceOption func(*ImageSource)

func WithImageAltText(altText string) ImageSourceOption {
	return func(i *ImageSource) {
		i.AltText = &altText
	}
}

// NewNoteSource creates a note source.
func NewNoteSource(info SourceInfo, text string) Source {
	return Source{Note: &NoteSource{SourceInfo: info, Text: text}}
}

// NewChatlogSource creates a chatlog source.
func NewChatlogSource(info SourceInfo, messages []ChatMessage, opts ...ChatlogSourceOption) Source {
	chatlog := &ChatlogSource{
		SourceInfo: info,
		Messages:   messages,
	}
	for _, opt := range opts {
		opt(chatlog)
	}
	return Source{Chatlog: chatlog}
}

type ChatlogSourceOption func(*ChatlogSource)

func WithChatlogModel(model string) ChatlogSourceOption {
	return func(c *ChatlogSource) {
		c.Model = &model
	}
}

// NewBinaryBlob wraps base64 data, deriving the byte size from the encoded
// length.
func NewBinaryBlob(data, mimeType string) BinaryBlob {
	return BinaryBlob{Data: data, MimeType: mimeType, ByteSize: Base64ByteSize(data)}
}
