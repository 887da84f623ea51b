package llmcontext

import (
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
)

// ToLanguageModelInput converts an envelope into an sdk-go input: the
// rendered text as the user message body, followed by one image part per
// included image attachment for vision-capable models. Raw PDF bytes have no
// sdk-go part and are skipped; the manifest still references them.
func ToLanguageModelInput(envelope ContextEnvelope) *llmsdk.LanguageModelInput {
	parts := []llmsdk.Part{
		{TextPart: &llmsdk.TextPart{Text: RenderEnvelopeAsText(envelope)}},
	}

	for _, attachment := range envelope.Attachments {
		if !attachment.Included || !strings.HasPrefix(attachment.MimeType, "image/") {
			continue
		}
		blob, err := GetAttachmentData(envelope, attachment.Anchor)
		if err != nil || blob == nil || blob.Data == "" {
			continue
		}
		parts = append(parts, llmsdk.Part{ImagePart: &llmsdk.ImagePart{
			MimeType: blob.MimeType,
			Data:     blob.Data,
		}})
	}

	return &llmsdk.LanguageModelInput{
		Messages: []llmsdk.Message{
			llmsdk.NewUserMessage(parts...),
		},
	}
}
