// Package token implements the opaque media-token codec.
//
// Tokens are Fernet messages: authenticated symmetric encryption under a
// process-wide key, with the issue timestamp embedded by the cipher itself.
// They are self-contained and stateless: no record of issued tokens is
// kept, so expiry, not revocation, bounds exposure. Base64 padding is
// stripped from minted tokens to keep them compact inside URLs; Redeem
// re-derives it.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
)

// DefaultTTL is the validity window for minted tokens.
const DefaultTTL = time.Hour

// ErrInvalidToken is returned by Redeem for every failure mode. Tampered,
// foreign, malformed and expired tokens are deliberately indistinguishable
// to callers so the endpoint never acts as a validity oracle.
var ErrInvalidToken = errors.New("invalid or expired media token")

// Media is the token payload: an internal media identifier and, when the
// source object carried one, its mime type. Wire names match the backend's
// own field names.
type Media struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type,omitempty"`
}

// Codec mints and redeems opaque media tokens.
//
// A Codec is safe for concurrent use; it holds only the immutable key and
// validity window.
type Codec struct {
	key *fernet.Key
	ttl time.Duration
}

// New creates a codec from a URL-safe base64 Fernet key.
// ttl <= 0 selects DefaultTTL.
//
// An undecodable key is a startup condition: the caller must treat the
// error as fatal rather than defer it to request time.
func New(key string, ttl time.Duration) (*Codec, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("decoding crypt key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{key: k, ttl: ttl}, nil
}

// Mint encrypts the payload into a URL-safe opaque token carrying the
// current timestamp. The cipher draws a fresh random IV per call, so
// minting the same payload many times per response is safe and yields
// distinct tokens.
func (c *Codec) Mint(m Media) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding token payload: %w", err)
	}
	tok, err := fernet.EncryptAndSign(data, c.key)
	if err != nil {
		return "", fmt.Errorf("encrypting token: %w", err)
	}
	return strings.TrimRight(string(tok), "="), nil
}

// Redeem authenticates and decrypts a token, enforcing the validity window.
// Any failure yields ErrInvalidToken.
func (c *Codec) Redeem(tok string) (Media, error) {
	if tok == "" {
		return Media{}, ErrInvalidToken
	}
	if n := len(tok) % 4; n != 0 {
		tok += strings.Repeat("=", 4-n)
	}
	msg := fernet.VerifyAndDecrypt([]byte(tok), c.ttl, []*fernet.Key{c.key})
	if msg == nil {
		return Media{}, ErrInvalidToken
	}
	var m Media
	if err := json.Unmarshal(msg, &m); err != nil {
		return Media{}, ErrInvalidToken
	}
	if m.FileID == "" {
		return Media{}, ErrInvalidToken
	}
	return m, nil
}
