package domain

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AllowedMediaTypes lists the evidence formats accepted by SubmitProof.
var AllowedMediaTypes = []string{"image/jpeg", "image/png"}

// Attachment is binary evidence uploaded with a proof.
type Attachment struct {
	ContentType string
	Data        []byte
}

// ValidateAttachment checks both the declared and the sniffed media type.
func ValidateAttachment(a Attachment) error {
	if len(a.Data) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidAttachment)
	}
	if declared := strings.TrimSpace(a.ContentType); declared != "" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil || !allowedMediaType(mediaType) {
			return fmt.Errorf("%w: declared type %q", ErrInvalidAttachment, declared)
		}
	}
	detected := mimetype.Detect(a.Data)
	for _, allowed := range AllowedMediaTypes {
		if detected.Is(allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: detected type %q", ErrInvalidAttachment, detected.String())
}

// DetectMediaType sniffs stored evidence for download responses.
func DetectMediaType(data []byte) string {
	return mimetype.Detect(data).String()
}

func allowedMediaType(mediaType string) bool {
	for _, allowed := range AllowedMediaTypes {
		if strings.EqualFold(mediaType, allowed) {
			return true
		}
	}
	return false
}
