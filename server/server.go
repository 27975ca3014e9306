// Package server exposes the challenger status, metrics and cached
// Blobstream events over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/host"
)

const shutdownTimeout = 5 * time.Second

// Events serves Blobstream data commitments. *eventcache.Cache satisfies it.
type Events interface {
	Get(ctx context.Context, height uint64) (blobstream.DataCommitment, error)
	First(ctx context.Context) (blobstream.DataCommitment, error)
	Commitments() []blobstream.DataCommitment
}

// Challenger runs challenges. *host.Challenger satisfies it.
type Challenger interface {
	Challenge(ctx context.Context, index, challenged blob.SpanSequence) (*host.Result, error)
}

// Config configures the HTTP listener.
type Config struct {
	Port        string
	HTTPTimeout time.Duration
}

// Server is the status API.
type Server struct {
	config     Config
	router     *mux.Router
	events     Events
	challenger Challenger
	checks     map[string]host.HeadReader
	logger     log.Logger
}

// New returns a server over events. gatherer backs /metrics and may be nil.
func New(config Config, events Events, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		events: events,
		checks: make(map[string]host.HeadReader),
		logger: logger.With("module", "server"),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	s.router.HandleFunc("/blobstream/events", s.handleEvents).Methods("GET")
	s.router.HandleFunc("/blobstream/events/{height}", s.handleEvent).Methods("GET")
	s.router.HandleFunc("/blobstream/first", s.handleFirst).Methods("GET")
	s.router.HandleFunc("/challenge", s.handleChallenge).Methods("POST")
	return s
}

// AddHealthCheck reports the head of a node on /health.
func (s *Server) AddHealthCheck(name string, node host.HeadReader) {
	s.checks[name] = node
}

// SetChallenger enables POST /challenge.
func (s *Server) SetChallenger(c Challenger) {
	s.challenger = c
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.config.Port, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.HTTPTimeout,
		WriteTimeout: s.config.HTTPTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info("shutting down API server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down server", "err", err)
		}
	}()

	s.logger.Info("API server listening", "addr", listener.Addr().String())
	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server error: %w", err)
	}
	<-done
	return nil
}

type healthResponse struct {
	Status string            `json:"status"`
	Heads  map[string]uint64 `json:"heads,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	for name, node := range s.checks {
		head, err := host.CheckNodeHealth(r.Context(), name, node, s.checkTimeout())
		if err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		if resp.Heads == nil {
			resp.Heads = make(map[string]uint64)
		}
		resp.Heads[name] = head
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) checkTimeout() time.Duration {
	if s.config.HTTPTimeout > 0 {
		return s.config.HTTPTimeout
	}
	return 10 * time.Second
}

type eventResponse struct {
	Nonce          uint64      `json:"proof_nonce"`
	StartBlock     uint64      `json:"start_block"`
	EndBlock       uint64      `json:"end_block"`
	DataCommitment common.Hash `json:"data_commitment"`
	BlockNumber    uint64      `json:"eth_block_number,omitempty"`
	TxHash         common.Hash `json:"tx_hash"`
}

func newEventResponse(c blobstream.DataCommitment) eventResponse {
	return eventResponse{
		Nonce:          c.Nonce,
		StartBlock:     c.StartBlock,
		EndBlock:       c.EndBlock,
		DataCommitment: c.Root,
		BlockNumber:    c.BlockNumber,
		TxHash:         c.TxHash,
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	commitments := s.events.Commitments()
	resp := make([]eventResponse, len(commitments))
	for i, c := range commitments {
		resp[i] = newEventResponse(c)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid Celestia block height", http.StatusBadRequest)
		return
	}
	commitment, err := s.events.Get(r.Context(), height)
	if errorsmod.IsOf(err, blobstream.ErrEventNotFound) {
		http.Error(w, "No data commitment covers this height", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Event lookup error: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, newEventResponse(commitment))
}

func (s *Server) handleFirst(w http.ResponseWriter, r *http.Request) {
	commitment, err := s.events.First(r.Context())
	if errorsmod.IsOf(err, blobstream.ErrEventNotFound) {
		http.Error(w, "No data commitment found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Event lookup error: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, newEventResponse(commitment))
}

type challengeRequest struct {
	IndexBlob      blob.SpanSequence `json:"index_blob"`
	ChallengedBlob blob.SpanSequence `json:"challenged_blob"`
}

type challengeResponse struct {
	Outcome string        `json:"outcome"`
	Proven  bool          `json:"proven"`
	Reason  string        `json:"reason,omitempty"`
	Error   string        `json:"error,omitempty"`
	Journal hexutil.Bytes `json:"journal,omitempty"`
	Seal    hexutil.Bytes `json:"seal,omitempty"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if s.challenger == nil {
		http.Error(w, "Challenges are disabled", http.StatusNotImplemented)
		return
	}
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.challenger.Challenge(r.Context(), req.IndexBlob, req.ChallengedBlob)
	if result == nil {
		http.Error(w, fmt.Sprintf("Challenge failed: %v", err), http.StatusInternalServerError)
		return
	}

	resp := challengeResponse{Outcome: result.Outcome, Proven: result.Verdict.Proven}
	status := http.StatusOK
	switch {
	case errorsmod.IsOf(err, challenge.ErrBlobAvailable):
	case challenge.IsInputError(err) && result.Journal == nil:
		resp.Error = err.Error()
		status = http.StatusUnprocessableEntity
	case err != nil:
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}
	if result.Verdict.Reason != nil {
		resp.Reason = result.Verdict.Reason.Error()
	}
	if result.Journal != nil {
		if resp.Journal, err = result.Journal.Encode(); err != nil {
			http.Error(w, "Failed to encode journal", http.StatusInternalServerError)
			return
		}
	}
	if result.Receipt != nil {
		resp.Seal = result.Receipt.Seal
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to generate response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write response", "err", err)
	}
}
