// Package status exposes a small HTTP surface for operators and
// monitoring: liveness, the node's last-indelible tip, and pool/queue
// depths, mirroring the status fields CredaCash reports today through
// its own admin RPC calls rather than a C++ http library.
//
// Grounded on the teacher's use of github.com/gorilla/mux for its
// HTTP-facing component (apiserver/apiserver.go's router setup) and
// on the node's own observable state (blockgraph.Graph,
// txvalidator.Queue) rather than introducing a new metrics store.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/CredaCash/CredaCash-sub002/blockgraph"
	"github.com/CredaCash/CredaCash-sub002/txvalidator"
)

// Report is the JSON body served at /status.
type Report struct {
	LastIndelibleLevel     uint64 `json:"last_indelible_level"`
	LastIndelibleTimestamp uint64 `json:"last_indelible_timestamp"`
	TxQueueDepth           int    `json:"tx_queue_depth"`
	FatalError             string `json:"fatal_error,omitempty"`
}

// Source supplies the live values a status report reads.
type Source interface {
	Graph() *blockgraph.Graph
	TxQueue() *txvalidator.Queue
	FatalError() error
}

// Server is the status HTTP server.
type Server struct {
	addr   string
	source Source
	router *mux.Router
	http   *http.Server
}

// NewServer builds a status server bound to addr, wiring its routes
// against source.
func NewServer(addr string, source Source) *Server {
	s := &Server{addr: addr, source: source, router: mux.NewRouter()}

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.http = &http.Server{Addr: addr, Handler: s.router}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.source.FatalError(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	graph := s.source.Graph()
	_, level, timestamp := graph.LastIndelibleTriple()

	report := Report{
		LastIndelibleLevel:     level,
		LastIndelibleTimestamp: timestamp,
		TxQueueDepth:           s.source.TxQueue().Len(),
	}
	if err := s.source.FatalError(); err != nil {
		report.FatalError = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

// Start begins serving in the background. A failure after startup
// (other than a graceful Close) is logged by the caller via the
// returned error channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Close stops the server.
func (s *Server) Close() error {
	return s.http.Close()
}
