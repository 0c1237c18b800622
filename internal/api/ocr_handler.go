package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nexusdata/nexusdata/internal/api/shared"
)

// maxImageBytes bounds uploaded image size.
const maxImageBytes = 10 << 20

// Recognizer extracts text from an image. Satisfied by the Gemini
// platform client.
type Recognizer interface {
	RecognizeText(ctx context.Context, mimeType string, image []byte) (string, error)
}

// OCRHandler exposes synchronous image text recognition.
type OCRHandler struct {
	recognizer Recognizer
	logger     *slog.Logger
}

// NewOCRHandler creates an OCRHandler.
func NewOCRHandler(recognizer Recognizer, logger *slog.Logger) *OCRHandler {
	return &OCRHandler{recognizer: recognizer, logger: logger}
}

// RecognizeImage handles POST /api/v1/ocr/image. The image arrives as a
// multipart form under the "file" field.
func (h *OCRHandler) RecognizeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if len(image) > maxImageBytes {
		shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "image exceeds size limit")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		shared.RespondWithError(w, r, http.StatusBadRequest, "uploaded file is not an image")
		return
	}

	text, err := h.recognizer.RecognizeText(r.Context(), mimeType, image)
	if err != nil {
		h.logger.Error("image recognition failed", "error", err)
		shared.RespondWithError(w, r, http.StatusBadGateway, "image recognition failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, OCRResponse{Text: text})
}
