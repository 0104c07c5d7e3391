package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"clippilot/internal/domain"
)

// CaptionExtractor resolves a caption for a post URL
type CaptionExtractor interface {
	ExtractCaption(ctx context.Context, rawURL string) (domain.CaptionResult, error)
	Platform() domain.Platform
}

type CaptionHandler struct {
	logger    *slog.Logger
	extractor CaptionExtractor
}

func NewCaptionHandler(logger *slog.Logger, extractor CaptionExtractor) *CaptionHandler {
	return &CaptionHandler{
		logger:    logger,
		extractor: extractor,
	}
}

// HandleExtract serves GET ?url=<post url>
func (h *CaptionHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	platform := h.extractor.Platform()

	if rawURL == "" {
		writeError(w, h.logger, http.StatusBadRequest, (&domain.InvalidInputError{Platform: platform.Name}).Error())
		return
	}

	start := time.Now()
	result, err := h.extractor.ExtractCaption(r.Context(), rawURL)
	if err != nil {
		status, message := captionErrorResponse(err)
		h.logger.Info("Caption extraction unsuccessful",
			"url", rawURL,
			"status", status,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		writeError(w, h.logger, status, message)
		return
	}

	// A 200 always carries a caption
	if !result.Found() {
		writeError(w, h.logger, http.StatusNotFound, domain.NotFoundMessage)
		return
	}

	h.logger.Info("Caption extracted",
		"url", rawURL,
		"caption_length", len(result.Caption),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSONResponse(w, h.logger, http.StatusOK, result)
}

// captionErrorResponse maps the resolver's error taxonomy to HTTP
func captionErrorResponse(err error) (int, string) {
	var invalid *domain.InvalidInputError
	var notFound *domain.NotFoundError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &upstream):
		return http.StatusInternalServerError, upstream.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
