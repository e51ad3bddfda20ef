package api

import (
	"context"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/koval01/telegram-gateway/internal/log"
	"github.com/koval01/telegram-gateway/internal/telegram"
	"github.com/koval01/telegram-gateway/internal/token"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// fakeBackend implements Backend with overridable behaviors.
type fakeBackend struct {
	getChat     func(ctx context.Context, handle string) (*telegram.Chat, error)
	history     func(ctx context.Context, handle string, page telegram.HistoryPage) iter.Seq2[telegram.Message, error]
	streamMedia func(ctx context.Context, fileID string) (io.ReadCloser, error)
	me          func(ctx context.Context) error
}

func (f *fakeBackend) GetChat(ctx context.Context, handle string) (*telegram.Chat, error) {
	return f.getChat(ctx, handle)
}

func (f *fakeBackend) History(ctx context.Context, handle string, page telegram.HistoryPage) iter.Seq2[telegram.Message, error] {
	return f.history(ctx, handle, page)
}

func (f *fakeBackend) StreamMedia(ctx context.Context, fileID string) (io.ReadCloser, error) {
	return f.streamMedia(ctx, fileID)
}

func (f *fakeBackend) Me(ctx context.Context) error {
	return f.me(ctx)
}

// historyOf yields the given messages then stops; a non-nil err is yielded
// after them.
func historyOf(msgs []telegram.Message, err error) func(context.Context, string, telegram.HistoryPage) iter.Seq2[telegram.Message, error] {
	return func(context.Context, string, telegram.HistoryPage) iter.Seq2[telegram.Message, error] {
		return func(yield func(telegram.Message, error) bool) {
			for _, m := range msgs {
				if !yield(m, nil) {
					return
				}
			}
			if err != nil {
				yield(telegram.Message{}, err)
			}
		}
	}
}

func testCodec(t *testing.T) *token.Codec {
	t.Helper()
	var k fernet.Key
	require.NoError(t, k.Generate())
	c, err := token.New(k.Encode(), 0)
	require.NoError(t, err)
	return c
}

func newTestServer(t *testing.T, backend Backend, opts ...func(*ServerConfig)) (*Server, *token.Codec) {
	t.Helper()
	codec := testCodec(t)
	cfg := ServerConfig{
		Logger:  log.NewNop(),
		Backend: backend,
		Codec:   codec,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s, codec
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServer_RequiredDeps(t *testing.T) {
	_, err := NewServer(ServerConfig{Codec: testCodec(t)})
	assert.Error(t, err)

	_, err = NewServer(ServerConfig{Backend: &fakeBackend{}})
	assert.Error(t, err)
}

func TestRootRedirectsToDocs(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	w := doRequest(s, http.MethodGet, "http://gw.test/")

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/docs", w.Header().Get("Location"))
}

func TestDocsPage(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	w := doRequest(s, http.MethodGet, "http://gw.test/docs")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/media/{token}")
}

func TestHostFilter(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{}, func(cfg *ServerConfig) {
		cfg.AllowedHosts = []string{"gw.example.org", ".example.net"}
	})

	tests := []struct {
		host string
		want int
	}{
		{"gw.example.org", http.StatusTemporaryRedirect},
		{"gw.example.org:443", http.StatusTemporaryRedirect},
		{"api.example.net", http.StatusTemporaryRedirect},
		{"evil.test", http.StatusBadRequest},
		{"example.org", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := doRequest(s, http.MethodGet, "http://"+tt.host+"/")
		assert.Equal(t, tt.want, w.Code, "host %s", tt.host)
	}
}

func TestHostFilter_Wildcard(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{}, func(cfg *ServerConfig) {
		cfg.AllowedHosts = []string{"*"}
	})

	w := doRequest(s, http.MethodGet, "http://anything.test/")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	w := doRequest(s, http.MethodGet, "http://gw.test/docs")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "http://gw.test/docs", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-Id"))
}

func TestServer_RunShutdown(t *testing.T) {
	s, _ := newTestServer(t, &fakeBackend{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, "127.0.0.1:0")
	}()

	// Give the listener a moment, then trigger graceful shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRequestBase(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://gw.example.org/chat/x", nil)
	base := requestBase(r, "fallback.test")
	assert.Equal(t, "http", base.Scheme)
	assert.Equal(t, "gw.example.org", base.Host)

	r.Header.Set("X-Forwarded-Proto", "https")
	base = requestBase(r, "fallback.test")
	assert.Equal(t, "https", base.Scheme)

	r.Host = ""
	base = requestBase(r, "fallback.test")
	assert.Equal(t, "fallback.test", base.Host)
}
