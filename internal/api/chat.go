package api

import (
	"net/http"
	"strconv"

	"github.com/koval01/telegram-gateway/internal/log"
	"github.com/koval01/telegram-gateway/internal/normalize"
	"github.com/koval01/telegram-gateway/internal/telegram"
)

// chatHandler serves chat lookups and message history.
type chatHandler struct {
	backend   Backend
	norm      *normalize.Normalizer
	appDomain string
	logger    log.Logger
}

// getChat resolves a chat handle, filters out non-exposable kinds, and
// returns the normalized object graph.
func (h *chatHandler) getChat(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	chat, err := h.backend.GetChat(r.Context(), username)
	if err != nil {
		writeBackendError(w, h.logger, err)
		return
	}
	if !chat.Kind.Exposable() {
		writeError(w, http.StatusForbidden, "forbidden", "this is not a channel or group")
		return
	}

	body, err := h.norm.Normalize(chat.Raw, requestBase(r, h.appDomain))
	if err != nil {
		h.logger.Error("normalization failed", "chat", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process chat")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// getMessages returns one page of history, newest first. The chat-kind
// check runs on the first yielded message only; a disallowed kind aborts
// the whole request before any partial body is written. Messages are
// processed as the backend yields them, each with its chat back-reference
// stripped, and returned in yield order.
func (h *chatHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	page := telegram.HistoryPage{
		Offset:     parseIntParam(r, "offset", 0),
		OffsetID:   int64(parseIntParam(r, "offset_id", 0)),
		OffsetDate: int64(parseIntParam(r, "offset_date", 0)),
	}
	base := requestBase(r, h.appDomain)

	first := true
	messages := make([]any, 0, telegram.DefaultPageSize)
	for msg, err := range h.backend.History(r.Context(), username, page) {
		if err != nil {
			writeBackendError(w, h.logger, err)
			return
		}
		if first {
			if !msg.ChatKind.Exposable() {
				writeError(w, http.StatusForbidden, "forbidden", "this is not a channel or group")
				return
			}
			first = false
		}

		body, err := h.norm.Normalize(msg.Raw.Without("chat"), base)
		if err != nil {
			h.logger.Error("normalization failed", "chat", username, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to process messages")
			return
		}
		messages = append(messages, body)
	}
	writeJSON(w, http.StatusOK, messages)
}

// parseIntParam parses an integer query parameter, falling back to
// defaultVal when absent or unparsable.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}
