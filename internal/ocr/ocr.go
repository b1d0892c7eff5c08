// Package ocr transcribes photographed essay pages into plain text.
//
// A transcription is two outbound calls: the Telegram file download and one
// vision model request. Nothing is retried or cached, since Telegram file
// links expire after about an hour.
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Instruction is sent with every image.
const Instruction = "Transcribe the handwritten or printed essay in this image. " +
	"Return only the transcribed plain text, preserving paragraph breaks. " +
	"Do not add headings, commentary, corrections or formatting."

// Transcriber converts a Telegram photo reference into essay text.
type Transcriber interface {
	Transcribe(ctx context.Context, fileRef string) (string, error)
}

// Recognizer turns raw image bytes into text. Implementations wrap one
// vision capable model provider.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// FileResolutionError means Telegram did not return a downloadable path for
// a file reference.
type FileResolutionError struct {
	FileID string
	Err    error
}

func (e *FileResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve file %s: %v", e.FileID, e.Err)
	}
	return fmt.Sprintf("resolve file %s: no file path returned", e.FileID)
}

func (e *FileResolutionError) Unwrap() error { return e.Err }

// Pipeline is the Transcriber used in production: fetch from Telegram, then
// hand the bytes to a Recognizer.
type Pipeline struct {
	files      *TelegramFiles
	recognizer Recognizer
}

func NewPipeline(files *TelegramFiles, recognizer Recognizer) *Pipeline {
	return &Pipeline{files: files, recognizer: recognizer}
}

func (p *Pipeline) Transcribe(ctx context.Context, fileRef string) (string, error) {
	img, err := p.files.Fetch(ctx, fileRef)
	if err != nil {
		return "", err
	}
	text, err := p.recognizer.Recognize(ctx, img, sniffMime(img))
	if err != nil {
		return "", fmt.Errorf("recognize image: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// sniffMime falls back to JPEG, which is what Telegram stores photos as.
func sniffMime(b []byte) string {
	mime := http.DetectContentType(b)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}
