package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"hlspiped/internal/logger"
	"hlspiped/internal/metrics"
	"hlspiped/internal/pipeline"
	"hlspiped/internal/sink"
	"hlspiped/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// API exposes the pipeline's operational surface: stats, metrics, a
// WebSocket playback endpoint, and the fetch proxy the pipeline itself
// is configured to route through.
type API struct {
	ctrl     *pipeline.Controller
	met      *metrics.Metrics
	client   *transport.Client
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// New builds the HTTP router.
func New(ctrl *pipeline.Controller, met *metrics.Metrics, client *transport.Client, log logger.Logger) http.Handler {
	a := &API{
		ctrl:   ctrl,
		met:    met,
		client: client,
		logger: log,
		upgrader: websocket.Upgrader{
			// Playback clients may be served from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Get("/healthz", a.handleHealth)
	r.Get("/stats", a.handleStats)
	r.Get("/metrics", a.handleMetrics)
	r.Get("/proxy", a.handleProxy)
	r.Get("/ws", a.handleWebSocket)
	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.ctrl.Stats()); err != nil {
		a.logger.Warnf("Failed to encode stats: %v", err)
	}
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	a.met.Handler(func() {
		a.met.SetBufferSize(a.ctrl.BufferLen())
	}).ServeHTTP(w, r)
}

// handleProxy fetches the URL named in the query and relays body and
// content type. This is the endpoint the default proxy prefix
// ("/proxy?url=") points at.
func (a *API) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	data, contentType, err := a.client.FetchDirect(r.Context(), target)
	if err != nil {
		if fe, ok := transport.IsFetchError(err); ok {
			http.Error(w, fe.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, fmt.Sprintf("proxy fetch failed: %v", err), http.StatusBadGateway)
		return
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Write(data)
}

// handleWebSocket upgrades the connection and attaches it as the
// pipeline sink. The latest client wins; segments flow as binary
// messages until the client disconnects or the pipeline stops.
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	s := sink.NewWebSocketSink(conn)
	a.ctrl.Connect(s)
	a.logger.Infof("Playback client connected from %s", r.RemoteAddr)

	// Drain control frames; returning means the client went away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.ctrl.Disconnect(s)
	s.Close()
	a.logger.Infof("Playback client disconnected")
}
