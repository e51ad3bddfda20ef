package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koval01/telegram-gateway/internal/telegram"
	"github.com/koval01/telegram-gateway/internal/token"
)

func TestGetMedia_OK(t *testing.T) {
	backend := &fakeBackend{
		streamMedia: func(_ context.Context, fileID string) (io.ReadCloser, error) {
			assert.Equal(t, "file-42", fileID)
			return io.NopCloser(strings.NewReader("jpeg bytes")), nil
		},
	}
	s, codec := newTestServer(t, backend)

	tok, err := codec.Mint(token.Media{FileID: "file-42", MimeType: "image/jpeg"})
	require.NoError(t, err)

	w := doRequest(s, http.MethodGet, "http://gw.test/media/"+tok)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg bytes", w.Body.String())
}

func TestGetMedia_DefaultContentType(t *testing.T) {
	backend := &fakeBackend{
		streamMedia: func(context.Context, string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("png bytes")), nil
		},
	}
	s, codec := newTestServer(t, backend)

	tok, err := codec.Mint(token.Media{FileID: "file-1"})
	require.NoError(t, err)

	w := doRequest(s, http.MethodGet, "http://gw.test/media/"+tok)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DefaultMediaType, w.Header().Get("Content-Type"))
}

func TestGetMedia_InvalidToken(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	for _, tok := range []string{"garbage", "AAAA", "gAAAAABtampered"} {
		w := doRequest(s, http.MethodGet, "http://gw.test/media/"+tok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid media token")
	}
}

func TestGetMedia_ForeignKeyToken(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	other := testCodec(t)
	tok, err := other.Mint(token.Media{FileID: "file-9"})
	require.NoError(t, err)

	w := doRequest(s, http.MethodGet, "http://gw.test/media/"+tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid media token")
}

func TestGetMedia_BackendError(t *testing.T) {
	backend := &fakeBackend{
		streamMedia: func(context.Context, string) (io.ReadCloser, error) {
			return nil, telegram.ErrNotFound
		},
	}
	s, codec := newTestServer(t, backend)

	tok, err := codec.Mint(token.Media{FileID: "gone"})
	require.NoError(t, err)

	w := doRequest(s, http.MethodGet, "http://gw.test/media/"+tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
