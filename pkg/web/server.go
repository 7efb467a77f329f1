// Package web serves device status over HTTP: a JSON snapshot of the
// latest readings and a websocket stream of new ones.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/periph.go/pkg/framework"
	"github.com/robotalks/periph.go/pkg/pca9685"
	"github.com/robotalks/periph.go/pkg/telemetry"
)

const shutdownTimeout = 3 * time.Second

// Server exposes the reading feed over HTTP.
type Server struct {
	Addr string
	Feed *telemetry.Feed
	// Boards, when set, adds actuator board states to the status.
	Boards func() []pca9685.BoardInfo
}

// NewServer creates a Server on a listen address.
func NewServer(addr string, feed *telemetry.Feed) *Server {
	return &Server{Addr: addr, Feed: feed}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "web"
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/readings", s.handleReadings)
	mux.Handle("/stream", websocket.Handler(s.handleStream))
	return mux
}

// Run implements framework.Runnable, serving until the context is
// canceled, then shutting down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	glog.Infof("web: listening on %s", s.Addr)
	return fx.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, srv.ListenAndServe)
}

func (s *Server) handleReadings(w http.ResponseWriter, req *http.Request) {
	resp := struct {
		Readings map[string]json.RawMessage `json:"readings"`
		Boards   []pca9685.BoardInfo        `json:"boards,omitempty"`
	}{Readings: make(map[string]json.RawMessage)}
	for _, snap := range s.Feed.Latest() {
		resp.Readings[snap.Device] = snap.Data
	}
	if s.Boards != nil {
		resp.Boards = s.Boards()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		glog.V(2).Infof("web: encode readings: %v", err)
	}
}

// handleStream pushes each new snapshot as one JSON text frame until
// the client hangs up or the server stops.
func (s *Server) handleStream(ws *websocket.Conn) {
	ctx := ws.Request().Context()
	sub := s.Feed.Subscribe(16)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := websocket.Message.Send(ws, string(data)); err != nil {
				glog.V(2).Infof("web: stream closed: %v", err)
				return
			}
		}
	}
}
