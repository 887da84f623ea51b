package llmcontext

// GetAttachmentData resolves an anchor to the binary payload it references:
// a bare source anchor yields the source's primary artifact (webpage
// screenshot, raw PDF bytes, or image bytes), and a #p=N anchor yields that
// PDF page's image. A well-formed anchor that references nothing returns nil
// without an error.
func GetAttachmentData(envelope ContextEnvelope, anchor string) (*BinaryBlob, error) {
	parsed, err := ParseAnchor(anchor)
	if err != nil {
		return nil, err
	}

	for _, source := range envelope.Sources {
		info := source.Info()
		if info == nil || info.SourceID != parsed.SourceID {
			continue
		}

		if parsed.Location != nil {
			if parsed.Location.Page != nil && source.PDF != nil {
				for _, page := range source.PDF.Pages {
					if page.Number == parsed.Location.Page.Page && page.Image != nil {
						blob := *page.Image
						return &blob, nil
					}
				}
			}
			return nil, nil
		}

		switch {
		case source.Webpage != nil && source.Webpage.Screenshot != nil:
			blob := *source.Webpage.Screenshot
			return &blob, nil
		case source.PDF != nil && source.PDF.Raw != nil:
			blob := *source.PDF.Raw
			return &blob, nil
		case source.Image != nil && source.Image.Blob.Data != "":
			blob := source.Image.Blob
			return &blob, nil
		}
		return nil, nil
	}
	return nil, nil
}
