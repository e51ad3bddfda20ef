// Package normalize turns backend object graphs into stable, schema-free
// JSON. Enumerated fields become fixed string labels, every media reference
// gains a sibling URL carrying a tokenized, time-limited handle, and output
// serializes with deterministic key order.
package normalize

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/koval01/telegram-gateway/internal/graph"
	"github.com/koval01/telegram-gateway/internal/token"
)

// Fixed media field rule table. Kept as explicit suffix pairs; nothing in
// the backend schema needs anything more general.
const (
	fileIDKey     = "file_id"
	fileIDSuffix  = "_file_id"
	mimeTypeKey   = "mime_type"
	mimeSuffix    = "_mime_type"
	fileURLKey    = "file_url"
	fileURLSuffix = "_file_url"
)

// Normalizer transforms object graphs, minting one media token per media
// reference encountered. It is stateless apart from the codec and safe for
// concurrent use.
type Normalizer struct {
	codec *token.Codec
}

// New creates a normalizer that mints media tokens with the given codec.
func New(codec *token.Codec) *Normalizer {
	return &Normalizer{codec: codec}
}

// Normalize produces a new JSON-ready tree from node. base supplies the
// scheme and host for generated media URLs; handlers derive it from the
// inbound request so the URLs are self-referential and portable across
// environments. The input tree is never modified.
//
// Mappings come back as map[string]any: encoding/json marshals those keys
// in lexicographic order, so serialized output is byte-deterministic.
func (n *Normalizer) Normalize(node graph.Node, base *url.URL) (any, error) {
	switch t := node.(type) {
	case nil:
		return nil, nil
	case graph.Scalar:
		return t.Value, nil
	case graph.Enum:
		return Label(string(t)), nil
	case graph.Sequence:
		out := make([]any, 0, len(t))
		for _, child := range t {
			v, err := n.Normalize(child, base)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case graph.Mapping:
		return n.normalizeMapping(t, base)
	default:
		return nil, fmt.Errorf("unsupported node type %T", node)
	}
}

func (n *Normalizer) normalizeMapping(m graph.Mapping, base *url.URL) (map[string]any, error) {
	out := make(map[string]any, len(m)+1)
	for key, child := range m {
		v, err := n.Normalize(child, base)
		if err != nil {
			return nil, err
		}
		// Raw identifier fields are retained next to the generated URL:
		// existing consumers still read them.
		out[key] = v

		urlKey, mimeKey, ok := mediaKeys(key)
		if !ok {
			continue
		}
		fileID, ok := m.String(key)
		if !ok || fileID == "" {
			continue
		}
		mime, _ := m.String(mimeKey)
		tok, err := n.codec.Mint(token.Media{FileID: fileID, MimeType: mime})
		if err != nil {
			return nil, fmt.Errorf("minting media token for %q: %w", key, err)
		}
		out[urlKey] = fmt.Sprintf("%s://%s/media/%s", base.Scheme, base.Host, tok)
	}
	return out, nil
}

// mediaKeys resolves a mapping key against the media rule table, returning
// the generated URL key and the expected mime sibling key.
func mediaKeys(key string) (urlKey, mimeKey string, ok bool) {
	switch {
	case key == fileIDKey:
		return fileURLKey, mimeTypeKey, true
	case strings.HasSuffix(key, fileIDSuffix):
		prefix := strings.TrimSuffix(key, fileIDSuffix)
		return prefix + fileURLSuffix, prefix + mimeSuffix, true
	default:
		return "", "", false
	}
}

// Label converts an enum's symbolic name to its output form: every
// underscore-separated word capitalized, underscores retained.
// "supergroup" → "Supergroup", "text_link" → "Text_Link".
func Label(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, "_")
}
