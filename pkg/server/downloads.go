package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gatehouse-dev/gatehouse/pkg/bridge"
)

// DownloadResult is the content the application produced for a parked
// download request.
type DownloadResult struct {
	Data     []byte
	MimeType string
	Filename string
}

// downloads tracks HTTP download requests parked while the application
// goroutine produces their content.
type downloads struct {
	mu      sync.Mutex
	pending map[string]chan DownloadResult
}

func newDownloads() *downloads {
	return &downloads{pending: make(map[string]chan DownloadResult)}
}

// register parks a request id. The returned cancel always cleans the
// slot, whether the request completed, timed out or was abandoned.
func (d *downloads) register(requestID string) (<-chan DownloadResult, func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.pending[requestID]; exists {
		return nil, nil, ErrDownloadPending
	}
	ch := make(chan DownloadResult, 1)
	d.pending[requestID] = ch

	cancel := func() {
		d.mu.Lock()
		delete(d.pending, requestID)
		d.mu.Unlock()
	}
	return ch, cancel, nil
}

// complete delivers content to a parked request. Returns false when the
// request is no longer waiting.
func (d *downloads) complete(requestID string, res DownloadResult) bool {
	d.mu.Lock()
	ch, ok := d.pending[requestID]
	if ok {
		delete(d.pending, requestID)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	ch <- res
	return true
}

// downloadRequest is the payload pushed to the application goroutine
// when an HTTP download endpoint is hit.
type downloadRequest struct {
	Type       string `json:"type"`
	RequestID  string `json:"request_id"`
	WidgetID   string `json:"widget_id"`
	FragmentID string `json:"fragment_id,omitempty"`
}

// HandleDownload serves GET /downloads/<sessionID>?request_id=&widget_id=
// [&fragment_id=]. The request is forwarded to the application goroutine
// over the bridge and the HTTP connection parks until the content
// arrives or the download timeout elapses.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/downloads/"), "/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	requestID := query.Get("request_id")
	widgetID := query.Get("widget_id")
	if requestID == "" || widgetID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, ok := s.registry.GetBySession(sessionID)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	ch, cancel, err := s.downloads.register(requestID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		return
	}
	defer cancel()

	payload, err := json.Marshal(downloadRequest{
		Type:       "download_request",
		RequestID:  requestID,
		WidgetID:   widgetID,
		FragmentID: query.Get("fragment_id"),
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.bridge.PushNet(bridge.NetEvent{
		Type:      bridge.NetDownloadRequest,
		ConnID:    c.ID(),
		SessionID: sessionID,
		Payload:   payload,
	})

	select {
	case res := <-ch:
		s.metrics.RecordDownloadCompleted()
		if res.MimeType != "" {
			w.Header().Set("Content-Type", res.MimeType)
		}
		if res.Filename != "" {
			w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
		}
		w.Write(res.Data)
	case <-time.After(s.cfg.DownloadTimeout):
		s.metrics.RecordDownloadExpired()
		http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
	case <-r.Context().Done():
	case <-s.done:
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}

// CompleteDownload hands content to a parked download request. The
// application goroutine calls this when it has produced the data named
// by a download_request payload. Returns false when no request with
// that id is waiting.
func (s *Server) CompleteDownload(requestID string, res DownloadResult) bool {
	return s.downloads.complete(requestID, res)
}
