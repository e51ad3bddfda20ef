package telegram

import (
	"errors"
	"strings"

	"github.com/koval01/telegram-gateway/internal/graph"
)

// Sentinel errors mapped from bridge responses. Endpoint handlers translate
// these to HTTP statuses with errors.Is; nothing is retried at this layer.
var (
	// ErrNotFound indicates the chat handle does not resolve to anything.
	ErrNotFound = errors.New("username does not exist")

	// ErrPrivate indicates the chat exists but is not accessible.
	ErrPrivate = errors.New("channel is private")
)

// Kind classifies a chat.
type Kind string

// Chat kinds as the platform reports them.
const (
	KindPrivate    Kind = "private"
	KindBot        Kind = "bot"
	KindGroup      Kind = "group"
	KindSupergroup Kind = "supergroup"
	KindChannel    Kind = "channel"
	KindUnknown    Kind = ""
)

// ParseKind maps a raw chat type value to a Kind. The platform is not
// consistent about case, so matching is case-insensitive.
func ParseKind(s string) Kind {
	s = strings.ToLower(s)
	switch Kind(s) {
	case KindPrivate, KindBot, KindGroup, KindSupergroup, KindChannel:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Exposable reports whether chats of this kind may be served by the
// gateway. Direct-message and bot conversations are never exposed.
func (k Kind) Exposable() bool {
	switch k {
	case KindGroup, KindSupergroup, KindChannel:
		return true
	default:
		return false
	}
}

// Chat is a resolved chat: its kind for the exposure filter plus the full
// raw object graph for normalization.
type Chat struct {
	Kind Kind
	Raw  graph.Mapping
}

// Message is one history element. ChatKind carries the parent chat's kind
// so handlers can validate it once, on the first yielded element. Raw still
// holds the chat back-reference under "chat"; handlers strip it before
// normalizing.
type Message struct {
	ChatKind Kind
	Raw      graph.Mapping
}

// DefaultPageSize bounds a history page.
const DefaultPageSize = 20

// HistoryPage is the pagination window for History. The zero value selects
// the newest DefaultPageSize messages.
type HistoryPage struct {
	Limit      int   // page size; <= 0 selects DefaultPageSize
	Offset     int   // element offset within the window
	OffsetID   int64 // start from this message id
	OffsetDate int64 // unix seconds; 0 means epoch
}
