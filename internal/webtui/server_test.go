package webtui

import (
	"net/http"
	"net/http/httptest"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestTerminalPage(t *testing.T) {
	srv, err := NewServer(ServerConfig{Dir: "/tmp/drafts", Backend: "sqlite"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/terminal", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/terminal", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "xterm.js")
	require.Contains(t, body, `data-dir="/tmp/drafts"`)
}

func TestWS_StreamsProcessOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no pty on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	srv, err := NewServer(ServerConfig{
		Command: func() (*exec.Cmd, error) {
			return exec.Command("sh", "-c", "printf 'editor-ready\\n'; sleep 5"), nil
		},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resize","cols":80,"rows":24}`)))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got strings.Builder
	for !strings.Contains(got.String(), "editor-ready") {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "output so far: %q", got.String())
		got.Write(data)
	}
}

func TestWS_RejectsCrossOrigin(t *testing.T) {
	srv, err := NewServer(ServerConfig{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	h := http.Header{}
	h.Set("Origin", "http://evil.example")
	_, res, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", h)
	require.Error(t, err)
	require.NotNil(t, res)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestControlFrame_Resize(t *testing.T) {
	c, ok := parseControl([]byte(`{"type":"Resize","cols":100,"rows":30}`))
	require.True(t, ok)
	ws, ok := c.winsize()
	require.True(t, ok)
	require.Equal(t, uint16(100), ws.Cols)
	require.Equal(t, uint16(30), ws.Rows)

	for _, raw := range []string{
		`{"type":"resize","cols":0,"rows":30}`,
		`{"type":"resize","cols":70000,"rows":30}`,
		`{"type":"focus"}`,
	} {
		c, ok := parseControl([]byte(raw))
		require.True(t, ok, raw)
		_, ok = c.winsize()
		require.False(t, ok, raw)
	}

	// Typed text that merely starts with a brace is input, not a command.
	for _, raw := range []string{"{", `{"cols":1}`, "ls\r", ""} {
		_, ok := parseControl([]byte(raw))
		require.False(t, ok, "%q", raw)
	}
}

func TestSameOrigin(t *testing.T) {
	req := func(host, origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = host
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	require.True(t, sameOrigin(req("localhost:7070", "")))
	require.True(t, sameOrigin(req("localhost:7070", "http://localhost:7070")))
	require.False(t, sameOrigin(req("localhost:7070", "http://localhost:7070.evil.example")))
	require.False(t, sameOrigin(req("localhost:7070", "http://evil.example")))
}
