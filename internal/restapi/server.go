// Package restapi is a trimmed status/debug surface over a running
// node: shard and block heights, chunk/block lookups by height, and a
// health check.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rechain/shardchain/internal/node"
	"github.com/rechain/shardchain/internal/types"
)

// Server exposes read-only node status over HTTP.
type Server struct {
	sup        *node.Supervisor
	router     *mux.Router
	httpServer *http.Server
}

// NewServer builds the router against sup's shard and block stores.
func NewServer(sup *node.Supervisor) *Server {
	s := &Server{sup: sup, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/shards/{shard:[0-9]+}/height", s.handleShardHeight).Methods("GET")
	s.router.HandleFunc("/shards/{shard:[0-9]+}/chunks/{height:[0-9]+}", s.handleShardChunk).Methods("GET")
	s.router.HandleFunc("/blocks/latest", s.handleLatestBlock).Methods("GET")
	s.router.HandleFunc("/blocks/{height:[0-9]+}", s.handleBlock).Methods("GET")
}

// ServeHTTP lets Server be used directly with httptest or a custom
// http.Server, in addition to the self-managed Start/Stop lifecycle.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start begins serving on addr; blocks until Stop is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) respond(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (s *Server) error(w http.ResponseWriter, err error, status int) {
	s.respond(w, map[string]string{"error": err.Error()}, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

func (s *Server) shardFromVars(r *http.Request) (types.ShardId, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["shard"], 10, 32)
	if err != nil {
		return 0, err
	}
	return types.ShardId(id), nil
}

func (s *Server) handleShardHeight(w http.ResponseWriter, r *http.Request) {
	shardID, err := s.shardFromVars(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	store, ok := s.sup.ShardStores()[shardID]
	if !ok {
		s.error(w, fmt.Errorf("unknown shard %d", shardID), http.StatusNotFound)
		return
	}
	bn, err := store.MaxBlockNumber(r.Context())
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}
	s.respond(w, map[string]uint64{"block_number": bn}, http.StatusOK)
}

func (s *Server) handleShardChunk(w http.ResponseWriter, r *http.Request) {
	shardID, err := s.shardFromVars(r)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	store, ok := s.sup.ShardStores()[shardID]
	if !ok {
		s.error(w, fmt.Errorf("unknown shard %d", shardID), http.StatusNotFound)
		return
	}
	chunk, err := store.GetShardChunk(r.Context(), height)
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}
	if chunk == nil {
		s.error(w, fmt.Errorf("no chunk at height %d", height), http.StatusNotFound)
		return
	}
	s.respond(w, chunk, http.StatusOK)
}

func (s *Server) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.sup.BlockStore().GetLastBlock(r.Context())
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}
	if block == nil {
		s.respond(w, map[string]string{"message": "no blocks yet"}, http.StatusOK)
		return
	}
	s.respond(w, block, http.StatusOK)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		s.error(w, err, http.StatusBadRequest)
		return
	}
	block, err := s.sup.BlockStore().GetBlock(r.Context(), height)
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}
	if block == nil {
		s.error(w, fmt.Errorf("block not found"), http.StatusNotFound)
		return
	}
	s.respond(w, block, http.StatusOK)
}
