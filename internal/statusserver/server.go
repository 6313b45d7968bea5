package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

const contentTypeJSON = "application/json"

type StatusSource interface {
	Status() models.EngineStatus
}

// Server exposes a read-only view of the engine for monitoring: the
// ownership table, quorum, and liveness probes.
type Server struct {
	source     StatusSource
	httpServer *http.Server
}

func New(addr string, source StatusSource) *Server {
	s := &Server{source: source}

	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/ready", s.handleReady)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) Run() error {
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

type eipDto struct {
	ID           string `json:"id"`
	Zone         string `json:"zone,omitempty"`
	DefaultOwner string `json:"default_owner,omitempty"`
	Holder       string `json:"holder,omitempty"`
	Pending      string `json:"pending,omitempty"`
	State        string `json:"state"`
}

type statusDto struct {
	Bootstrapped    bool     `json:"bootstrapped"`
	Quorum          bool     `json:"quorum"`
	SnapshotVersion uint64   `json:"snapshot_version"`
	TotalMembers    int      `json:"total_members"`
	AliveMembers    int      `json:"alive_members"`
	Suppressed      uint64   `json:"suppressed_decisions"`
	EIPs            []eipDto `json:"eips"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	status := s.source.Status()
	dto := statusDto{
		Bootstrapped:    status.Bootstrapped,
		Quorum:          status.Quorum,
		SnapshotVersion: status.SnapshotVersion,
		TotalMembers:    status.TotalMembers,
		AliveMembers:    status.AliveMembers,
		Suppressed:      status.Suppressed,
		EIPs:            make([]eipDto, 0, len(status.EIPs)),
	}
	for _, eip := range status.EIPs {
		dto.EIPs = append(dto.EIPs, eipDto{
			ID:           eip.ID.String(),
			Zone:         eip.Zone,
			DefaultOwner: eip.DefaultOwner.String(),
			Holder:       eip.Holder.String(),
			Pending:      eip.Pending.String(),
			State:        eip.State.String(),
		})
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		log.Error().Err(err).Msg("failed to encode status response")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	w.WriteHeader(http.StatusOK)
}

// handleReady reports ready only after cold start finished: before the
// first full membership snapshot the engine is not allowed to act.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if !s.source.Status().Bootstrapped {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
