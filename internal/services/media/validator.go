package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// ContentValidator decides whether an upload may be stored. It returns the
// body to store (which may be rewrapped) and the content type to record.
type ContentValidator interface {
	Validate(originalName, declaredType string, body io.Reader) (io.Reader, string, error)
}

// ExtensionValidator accepts files by name suffix only. The declared content
// type is passed through untouched and the bytes are never inspected.
type ExtensionValidator struct {
	allowed map[string]struct{}
}

func NewExtensionValidator(extensions []string) *ExtensionValidator {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &ExtensionValidator{allowed: allowed}
}

func (v *ExtensionValidator) Allowed(originalName string) bool {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(originalName)))
	if ext == "" {
		return false
	}
	_, ok := v.allowed[ext]
	return ok
}

func (v *ExtensionValidator) Validate(originalName, declaredType string, body io.Reader) (io.Reader, string, error) {
	if !v.Allowed(originalName) {
		return nil, "", ErrUnsupportedType
	}
	return body, declaredType, nil
}

// SniffingValidator applies the extension allow-list and then requires the
// leading bytes to be detected as an image or video. The detected type
// replaces the client-declared one.
type SniffingValidator struct {
	extensions *ExtensionValidator
}

func NewSniffingValidator(extensions []string) *SniffingValidator {
	return &SniffingValidator{extensions: NewExtensionValidator(extensions)}
}

func (v *SniffingValidator) Validate(originalName, declaredType string, body io.Reader) (io.Reader, string, error) {
	if !v.extensions.Allowed(originalName) {
		return nil, "", ErrUnsupportedType
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", fmt.Errorf("read upload head: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	family, _, _ := strings.Cut(detected.String(), "/")
	if family != TypeImage && family != TypeVideo {
		return nil, "", fmt.Errorf("%w: detected %s, declared %s", ErrUnsupportedType, detected.String(), declaredType)
	}

	return io.MultiReader(bytes.NewReader(head), body), detected.String(), nil
}
