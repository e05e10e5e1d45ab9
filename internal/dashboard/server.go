package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/series"
	"github.com/weatherstation/internal/websocket"
)

//go:embed static
var staticFiles embed.FS

// Server serves the chart page, the live feed and the service endpoints.
type Server struct {
	addr   string
	chart  *series.Chart
	hub    *websocket.Hub
	metric *metric.Metric
	log    logrus.FieldLogger
}

// New creates a dashboard server on addr.
func New(addr string, chart *series.Chart, hub *websocket.Hub, m *metric.Metric, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		addr:   addr,
		chart:  chart,
		hub:    hub,
		metric: m,
		log:    log.WithField("component", "dashboard"),
	}
}

// Handler returns the routed handler wrapped in CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/ws/stats", s.handleWebSocketStats).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metric != nil {
		r.Handle("/metrics", s.metric.Handler()).Methods(http.MethodGet)
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The embed pattern guarantees the directory.
		panic(err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Wrap(err, "http server")
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	return <-errc
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}
	s.log.WithField("remote", r.RemoteAddr).Debug("new websocket connection")
	s.hub.ServeWS(w, r)
}

func (s *Server) handleWebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"connected_clients": 0,
		"timestamp":         time.Now().Unix(),
		"status":            "unavailable",
	}
	if s.hub != nil {
		stats["connected_clients"] = s.hub.GetClientCount()
		stats["status"] = "active"
	}
	writeJSON(w, stats)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.chart.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"variant": s.chart.Variant().Name,
		"points":  s.chart.Len(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
