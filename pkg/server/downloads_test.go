package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/pkg/bridge"
)

func downloadURL(base, sessionID string, params url.Values) string {
	return base + "/downloads/" + sessionID + "?" + params.Encode()
}

func TestHandleDownloadValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	dl := httptest.NewServer(http.HandlerFunc(ts.s.HandleDownload))
	defer dl.Close()

	for _, tc := range []struct {
		name string
		url  string
		want int
	}{
		{"missing session", dl.URL + "/downloads/?request_id=r1&widget_id=w1", http.StatusBadRequest},
		{"missing request_id", dl.URL + "/downloads/session_x?widget_id=w1", http.StatusBadRequest},
		{"missing widget_id", dl.URL + "/downloads/session_x?request_id=r1", http.StatusBadRequest},
		{"unknown session", dl.URL + "/downloads/session_x?request_id=r1&widget_id=w1", http.StatusNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(tc.url)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestHandleDownloadDeliversContent(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.dial(t)
	connected := ts.nextEvent(t, bridge.NetClientConnected)

	dl := httptest.NewServer(http.HandlerFunc(ts.s.HandleDownload))
	defer dl.Close()

	// The application side answers the download request as soon as it
	// arrives over the bridge.
	go func() {
		var e bridge.NetEvent
		for e.Type != bridge.NetDownloadRequest {
			select {
			case e = <-ts.events:
			case <-time.After(5 * time.Second):
				t.Error("no download request event")
				return
			}
		}
		var req downloadRequest
		if err := json.Unmarshal(e.Payload, &req); err != nil {
			t.Errorf("bad download payload: %v", err)
			return
		}
		if req.Type != "download_request" || req.RequestID != "r1" || req.WidgetID != "w7" {
			t.Errorf("download request = %+v", req)
		}
		ts.s.CompleteDownload(req.RequestID, DownloadResult{
			Data:     []byte("report body"),
			MimeType: "application/pdf",
			Filename: "report.pdf",
		})
	}()

	params := url.Values{"request_id": {"r1"}, "widget_id": {"w7"}}
	resp, err := http.Get(downloadURL(dl.URL, connected.SessionID, params))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="report.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "report body" {
		t.Errorf("body = %q", body)
	}
}

func TestHandleDownloadTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DownloadTimeout = 50 * time.Millisecond
	ts := newTestServer(t, cfg)
	ts.dial(t)
	connected := ts.nextEvent(t, bridge.NetClientConnected)

	dl := httptest.NewServer(http.HandlerFunc(ts.s.HandleDownload))
	defer dl.Close()

	params := url.Values{"request_id": {"r1"}, "widget_id": {"w1"}}
	resp, err := http.Get(downloadURL(dl.URL, connected.SessionID, params))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", resp.StatusCode)
	}
	if ts.s.Metrics().Snapshot().DownloadsExpired != 1 {
		t.Error("expired download not counted")
	}
}

func TestCompleteDownloadWithoutWaiter(t *testing.T) {
	ts := newTestServer(t, nil)
	if ts.s.CompleteDownload("nobody", DownloadResult{Data: []byte("x")}) {
		t.Error("CompleteDownload reported delivery with no parked request")
	}
}

func TestRegisterDuplicateRequest(t *testing.T) {
	d := newDownloads()
	_, cancel, err := d.register("r1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	if _, _, err := d.register("r1"); err != ErrDownloadPending {
		t.Errorf("err = %v, want ErrDownloadPending", err)
	}
	cancel()
	if _, c2, err := d.register("r1"); err != nil {
		t.Errorf("register after cancel: %v", err)
	} else {
		c2()
	}
}
