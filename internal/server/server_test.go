package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/coder/websocket"

	"github.com/cryguy/mermaid"
)

const flowchart = "graph TD\nA[Start] --> B[End]"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	pool, err := NewPool(1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	srv := httptest.NewServer(New(pool, mermaid.DefaultOptions(), 64, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := httptest.NewServer(New(nil, mermaid.DefaultOptions(), 64, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestServer_Formats(t *testing.T) {
	srv := httptest.NewServer(New(nil, mermaid.DefaultOptions(), 64, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/formats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got struct{ Formats []string }
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if strings.Join(got.Formats, ",") != strings.Join(mermaid.Formats(), ",") {
		t.Errorf("formats = %v", got.Formats)
	}
}

func TestServer_RenderSVG(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/render/svg?width=640&height=480", "text/plain", strings.NewReader(flowchart))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Contains(body, []byte(`width="640"`)) || !bytes.Contains(body, []byte(`height="480"`)) {
		t.Errorf("svg not sized from query: %.200s", body)
	}
}

func TestServer_RenderPNGFromPath(t *testing.T) {
	srv := newTestServer(t)

	payload := base64.RawURLEncoding.EncodeToString([]byte(flowchart))
	resp, err := http.Get(srv.URL + "/png/" + payload)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")) {
		t.Errorf("not a png: % x", body[:8])
	}
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown format", http.MethodPost, "/render/bmp", flowchart, http.StatusBadRequest},
		{"bad width", http.MethodPost, "/render/svg?width=wide", flowchart, http.StatusBadRequest},
		{"zero width", http.MethodPost, "/render/svg?width=0", flowchart, http.StatusUnprocessableEntity},
		{"syntax error", http.MethodPost, "/render/svg", "graph TD\nA-->", http.StatusUnprocessableEntity},
		{"bad payload", http.MethodGet, "/svg/!!!", "", http.StatusBadRequest},
		{"too large", http.MethodPost, "/render/svg", strings.Repeat("x", 65*1024), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestServer_Compression(t *testing.T) {
	srv := newTestServer(t)

	for _, enc := range []string{"br", "gzip"} {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/render/svg", strings.NewReader(flowchart))
		req.Header.Set("Accept-Encoding", enc)
		resp, err := http.DefaultTransport.RoundTrip(req)
		if err != nil {
			t.Fatal(err)
		}
		if got := resp.Header.Get("Content-Encoding"); got != enc {
			t.Errorf("Content-Encoding = %q, want %q", got, enc)
		}
		var r io.Reader
		if enc == "br" {
			r = brotli.NewReader(resp.Body)
		} else {
			r, err = gzip.NewReader(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
		}
		body, err := io.ReadAll(r)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("%s: decompressing: %v", enc, err)
		}
		if !bytes.Contains(body, []byte("<svg")) {
			t.Errorf("%s: body is not svg: %.100s", enc, body)
		}
	}
}

func TestServer_Live(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, srv.URL+"/live", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	if err := conn.Write(ctx, websocket.MessageText, []byte(flowchart)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<svg")) {
		t.Errorf("reply = %.100s", data)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("not a diagram")); err != nil {
		t.Fatal(err)
	}
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var reply map[string]string
	if err := json.Unmarshal(data, &reply); err != nil || reply["error"] == "" {
		t.Errorf("reply = %s, want an error object", data)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{mermaid.ErrInvalidFormat, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", &mermaid.Error{Kind: mermaid.KindRender, Msg: "x"}), http.StatusUnprocessableEntity},
		{mermaid.ErrInit, http.StatusServiceUnavailable},
		{errPoolClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAcceptsEncoding(t *testing.T) {
	tests := []struct {
		header, enc string
		want        bool
	}{
		{"gzip, deflate, br", "br", true},
		{"gzip;q=0.5", "gzip", true},
		{"br;q=0", "br", false},
		{"GZIP", "gzip", true},
		{"identity", "gzip", false},
		{"", "br", false},
	}
	for _, tt := range tests {
		if got := acceptsEncoding(tt.header, tt.enc); got != tt.want {
			t.Errorf("acceptsEncoding(%q, %q) = %v, want %v", tt.header, tt.enc, got, tt.want)
		}
	}
}

func TestPool_ClosedAndCancelled(t *testing.T) {
	pool, err := NewPool(1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if pool.Size() != 1 {
		t.Errorf("Size = %d", pool.Size())
	}

	r, _ := pool.get(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Render(ctx, flowchart, mermaid.FormatSVG, mermaid.DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("busy pool with cancelled ctx: err = %v", err)
	}
	pool.put(r)

	pool.Close()
	pool.Close()
	// The free session is still queued; drain it so get has to wait.
	<-pool.sessions
	if _, err := pool.get(context.Background()); !errors.Is(err, errPoolClosed) {
		t.Errorf("err = %v, want errPoolClosed", err)
	}
}
