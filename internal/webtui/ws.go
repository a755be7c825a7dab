package webtui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
)

const (
	frameSize    = 32 * 1024
	writeTimeout = 10 * time.Second
	pingEvery    = 30 * time.Second
	initialCols  = 120
	initialRows  = 40
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  frameSize,
	WriteBufferSize: frameSize,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser clients) and
// browser requests whose Origin host matches the Host being served.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// controlFrame is the JSON the browser sends in a text frame to manage the terminal.
// Text frames that do not decode as one are treated as typed input.
type controlFrame struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

func parseControl(data []byte) (controlFrame, bool) {
	var c controlFrame
	if len(data) == 0 || data[0] != '{' {
		return c, false
	}
	if err := json.Unmarshal(data, &c); err != nil || c.Type == "" {
		return c, false
	}
	return c, true
}

// winsize reports the requested terminal size, or false when it is not a usable
// resize request.
func (c controlFrame) winsize() (*pty.Winsize, bool) {
	if !strings.EqualFold(c.Type, "resize") {
		return nil, false
	}
	if c.Cols <= 0 || c.Rows <= 0 || c.Cols > 0xffff || c.Rows > 0xffff {
		return nil, false
	}
	return &pty.Winsize{Cols: uint16(c.Cols), Rows: uint16(c.Rows)}, true
}

// termSession binds one editor process to one socket.
type termSession struct {
	conn *websocket.Conn
	tty  *os.File
	cmd  *exec.Cmd
	srv  *Server

	stop sync.Once
}

// handleWS attaches one editor process to the socket. Output is sent as binary
// frames; a resize control frame resizes the terminal and any other frame is
// keyboard input.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("webtui: upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	cmd, err := s.cfg.Command()
	if err == nil {
		var tty *os.File
		tty, err = pty.StartWithSize(cmd, &pty.Winsize{Cols: initialCols, Rows: initialRows})
		if err == nil {
			sess := &termSession{conn: conn, tty: tty, cmd: cmd, srv: s}
			sess.run()
			return
		}
	}
	s.log.Warn("webtui: start session", "err", err)
	_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to start session: "+err.Error()))
}

// run blocks until either side goes away, then tears both down.
func (t *termSession) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := t.forwardOutput(); err != nil {
			t.srv.log.Debug("webtui: output ended", "err", err)
		}
		t.shutdown("session ended")
	}()
	go func() {
		defer wg.Done()
		if err := t.forwardInput(); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			t.srv.log.Debug("webtui: input ended", "err", err)
		}
		t.shutdown("")
	}()
	wg.Wait()
}

// shutdown closes the terminal, reaps the process and closes the socket. Closing
// both ends is what unblocks the forwarding goroutines.
func (t *termSession) shutdown(reason string) {
	t.stop.Do(func() {
		_ = t.tty.Close()
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
			_, _ = t.cmd.Process.Wait()
		}
		if reason != "" {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		_ = t.conn.Close()
	})
}

// forwardOutput copies terminal output to the socket and keeps the connection
// alive with pings while the editor is idle.
func (t *termSession) forwardOutput() error {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			}
		}
	}()

	_, err := io.CopyBuffer(binaryWriter{t.conn}, t.tty, make([]byte, frameSize))
	// Linux reports EIO on the master side once the child has exited.
	if err == nil || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func (t *termSession) forwardInput() error {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind == websocket.TextMessage {
			if c, ok := parseControl(data); ok {
				if ws, ok := c.winsize(); ok {
					_ = pty.Setsize(t.tty, ws)
				}
				continue
			}
		}
		if len(data) == 0 {
			continue
		}
		if _, err := t.tty.Write(data); err != nil {
			return err
		}
	}
}

// binaryWriter sends each Write as one binary frame.
type binaryWriter struct{ conn *websocket.Conn }

func (w binaryWriter) Write(p []byte) (int, error) {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
