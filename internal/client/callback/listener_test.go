package callback

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/accswitch/internal/autherr"
)

const testState = "abcDEF0123456789.-_abcDEF0123456789.-_abcDEF0123456789.-_abcDEF0123456789.-_abcDEF0123456789.-_xyz"

type outcome struct {
	err  error
	code string
}

// startListener поднимает listener на свободном порту
func startListener(t *testing.T, cfg Config) (*Listener, <-chan outcome, *atomic.Int32) {
	t.Helper()
	if cfg.PortFrom == 0 {
		cfg.PortFrom = -1
	}

	results := make(chan outcome, 4)
	calls := &atomic.Int32{}
	l, err := Listen(context.Background(), cfg, testState, func(code string, err error) {
		calls.Add(1)
		results <- outcome{code: code, err: err}
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	return l, results, calls
}

// noRedirectClient не следует редиректам, чтобы видеть ответ primary пути
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func primaryURL(l *Listener, query string) string {
	u := "http://127.0.0.1:" + strconv.Itoa(l.Port()) + PrimaryPath
	if query != "" {
		u += "?" + query
	}
	return u
}

func waitOutcome(t *testing.T, results <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-results:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
		return outcome{}
	}
}

func TestListener_Success(t *testing.T) {
	l, results, _ := startListener(t, Config{})

	resp, err := noRedirectClient().Get(primaryURL(l, "code=M.C507_BAY.abc&state="+testState))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://localhost:"+strconv.Itoa(l.Port())+SafePath, resp.Header.Get("Location"))
	assert.Contains(t, string(body), IconDone)
	assert.NotContains(t, string(body), "%%ias_")

	o := waitOutcome(t, results)
	require.NoError(t, o.err)
	assert.Equal(t, "M.C507_BAY.abc", o.code)
}

func TestListener_RedirectURI(t *testing.T) {
	l, _, _ := startListener(t, Config{})
	assert.Equal(t, "http://localhost:"+strconv.Itoa(l.Port())+PrimaryPath, l.RedirectURI())
}

func TestListener_Rejections(t *testing.T) {
	tests := []struct {
		wantErr    error
		name       string
		query      string
		wantReason autherr.Reason
	}{
		{name: "missing query", query: "", wantReason: autherr.ReasonQuery},
		{name: "access denied", query: "error=access_denied&error_description=The+user+has+denied+access", wantReason: autherr.ReasonCancel},
		{name: "malformed", query: "state=" + testState + "&code=abc", wantReason: autherr.ReasonMalformed},
		{name: "extra params", query: "code=abc&state=" + testState + "&x=1", wantReason: autherr.ReasonMalformed},
		{name: "state off by one char", query: "code=abc&state=" + testState[:len(testState)-1] + "Z", wantErr: autherr.ErrStateMismatch},
		{name: "state prefix", query: "code=abc&state=" + testState[:50], wantErr: autherr.ErrStateMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, results, _ := startListener(t, Config{})

			resp, err := noRedirectClient().Get(primaryURL(l, tt.query))
			require.NoError(t, err)
			_ = resp.Body.Close()

			o := waitOutcome(t, results)
			assert.Empty(t, o.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, o.err, tt.wantErr)
				assert.False(t, autherr.IsFriendly(o.err))
			} else {
				assert.Equal(t, tt.wantReason, autherr.ReasonOf(o.err))
			}
		})
	}
}

func TestListener_AccessDeniedObfuscatesCode(t *testing.T) {
	l, results, _ := startListener(t, Config{})

	resp, err := noRedirectClient().Get(primaryURL(l, "code=leaked&error=access_denied"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	o := waitOutcome(t, results)
	assert.Equal(t, autherr.ReasonCancel, autherr.ReasonOf(o.err))
	assert.NotContains(t, o.err.Error(), "leaked")
}

func TestListener_SingleUse(t *testing.T) {
	l, results, calls := startListener(t, Config{})
	client := noRedirectClient()

	resp, err := client.Get(primaryURL(l, "code=first&state="+testState))
	require.NoError(t, err)
	_ = resp.Body.Close()
	o := waitOutcome(t, results)
	assert.Equal(t, "first", o.code)

	// второй запрос закрывается без ответа
	resp, err = client.Get(primaryURL(l, "code=second&state="+testState))
	if err == nil {
		_ = resp.Body.Close()
	}
	assert.Error(t, err)

	select {
	case o := <-results:
		t.Fatalf("unexpected second result: %+v", o)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestListener_SafePath(t *testing.T) {
	l, _, calls := startListener(t, Config{Message: "<b>done</b>"})

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(l.Port()) + SafePath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "&lt;b&gt;done&lt;/b&gt;")
	assert.Equal(t, int32(0), calls.Load())
}

func TestListener_NonLoopbackClosed(t *testing.T) {
	l, results, calls := startListener(t, Config{})

	// подменяем адрес клиента перед listener
	handler := l.server.Handler
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.RemoteAddr = "203.0.113.7:40000"
		handler.ServeHTTP(w, r)
	}))
	defer proxy.Close()

	resp, err := noRedirectClient().Get(proxy.URL + PrimaryPath + "?code=abc&state=" + testState)
	if err == nil {
		_ = resp.Body.Close()
	}
	assert.Error(t, err)

	select {
	case o := <-results:
		t.Fatalf("unexpected result: %+v", o)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, l.accepted.Load())
}

func TestListener_NoPortAvailable(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	_, err = Listen(context.Background(), Config{PortFrom: port, PortTo: port}, testState, func(string, error) {}, nil)
	assert.ErrorIs(t, err, autherr.ErrNoPortAvailable)
}

func TestListener_CloseIdempotent(t *testing.T) {
	l, _, _ := startListener(t, Config{})

	require.NoError(t, l.Close())
	assert.NoError(t, l.Close())

	select {
	case <-l.Done():
	default:
		t.Fatal("done channel not closed")
	}

	_, err := http.Get("http://127.0.0.1:" + strconv.Itoa(l.Port()) + SafePath)
	assert.Error(t, err)
}

func TestListener_ClosesAfterGrace(t *testing.T) {
	l, results, _ := startListener(t, Config{Grace: 50 * time.Millisecond})

	resp, err := noRedirectClient().Get(primaryURL(l, "code=abc&state="+testState))
	require.NoError(t, err)
	_ = resp.Body.Close()
	waitOutcome(t, results)

	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("listener not closed after grace period")
	}
}

func TestListener_WaitExpires(t *testing.T) {
	l, results, _ := startListener(t, Config{Wait: 50 * time.Millisecond})

	o := waitOutcome(t, results)
	assert.Equal(t, autherr.ReasonExpired, autherr.ReasonOf(o.err))

	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("listener not closed after wait")
	}
}

func TestListener_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := &atomic.Int32{}
	l, err := Listen(ctx, Config{PortFrom: -1}, testState, func(string, error) { calls.Add(1) }, nil)
	require.NoError(t, err)

	cancel()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("listener not closed on context cancel")
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestListen_InvalidInput(t *testing.T) {
	_, err := Listen(context.Background(), Config{PortFrom: -1}, "", func(string, error) {}, nil)
	assert.ErrorIs(t, err, autherr.ErrInvalidInput)

	_, err = Listen(context.Background(), Config{PortFrom: -1}, testState, nil, nil)
	assert.ErrorIs(t, err, autherr.ErrInvalidInput)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:5000"))
	assert.True(t, isLoopback("[::1]:5000"))
	assert.False(t, isLoopback("192.168.1.10:5000"))
	assert.False(t, isLoopback("garbage"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, SafePath, nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
