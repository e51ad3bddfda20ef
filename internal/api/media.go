package api

import (
	"io"
	"net/http"

	"github.com/koval01/telegram-gateway/internal/log"
	"github.com/koval01/telegram-gateway/internal/token"
)

// DefaultMediaType is the content type served when a token carries no mime
// type.
const DefaultMediaType = "image/png"

// mediaHandler redeems opaque media tokens and relays the backing bytes.
type mediaHandler struct {
	backend Backend
	codec   *token.Codec
	logger  log.Logger
}

// getMedia redeems the token and streams the media body. Token failures
// collapse to a single message regardless of cause. The relay copies
// straight from the backend stream; nothing is buffered whole.
func (h *mediaHandler) getMedia(w http.ResponseWriter, r *http.Request) {
	media, err := h.codec.Redeem(r.PathValue("token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_token", "invalid media token")
		return
	}

	stream, err := h.backend.StreamMedia(r.Context(), media.FileID)
	if err != nil {
		writeBackendError(w, h.logger, err)
		return
	}
	defer stream.Close()

	contentType := media.MimeType
	if contentType == "" {
		contentType = DefaultMediaType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream); err != nil {
		// Headers are committed; client disconnects land here and are
		// routine.
		h.logger.Debug("media relay interrupted", "error", err)
	}
}
