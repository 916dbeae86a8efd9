// Package runtime holds the retrieval handle that queries are answered from.
//
// A handle is built once from a loaded vector index and never changes.
// Indexing builds a new handle and publishes it by swapping a pointer, so
// readers never wait on writers and never see a half-merged index.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/vectorindex"
)

// HandleConfig is everything a RetrievalHandle is built from.
type HandleConfig struct {
	Index    *vectorindex.Index
	Embedder driven.EmbeddingService
	Model    driven.AnswerModel
	Chain    domain.AnswerChain
	MMR      vectorindex.MMROptions

	// Revision is the vector store revision the index was loaded at
	Revision int64
}

// RetrievalHandle answers questions from one immutable index snapshot.
type RetrievalHandle struct {
	index    *vectorindex.Index
	embedder driven.EmbeddingService
	model    driven.AnswerModel
	chain    answerChain
	mmr      vectorindex.MMROptions
	revision int64
}

// NewRetrievalHandle validates cfg and builds a handle.
// The index must not be added to afterwards.
func NewRetrievalHandle(cfg HandleConfig) (*RetrievalHandle, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("retrieval handle: %w: no vector index", domain.ErrInvalidInput)
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("retrieval handle: %w: no embedding service", domain.ErrServiceUnavailable)
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("retrieval handle: %w: no answer model", domain.ErrServiceUnavailable)
	}
	if cfg.Chain == "" {
		cfg.Chain = domain.AnswerChainMapReduce
	}
	chain, err := chainFor(cfg.Chain)
	if err != nil {
		return nil, err
	}
	if cfg.MMR.K <= 0 {
		cfg.MMR = vectorindex.DefaultMMROptions()
	}

	return &RetrievalHandle{
		index:    cfg.Index,
		embedder: cfg.Embedder,
		model:    cfg.Model,
		chain:    chain,
		mmr:      cfg.MMR,
		revision: cfg.Revision,
	}, nil
}

// Answer embeds query, picks diverse relevant chunks and asks the model.
// The chunks are returned even when the model fails.
func (h *RetrievalHandle) Answer(ctx context.Context, query string) (string, []*domain.Chunk, error) {
	vector, err := h.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("embed query: %w", err)
	}

	scored := h.index.MaxMarginalRelevance(vector, h.mmr)
	chunks := make([]*domain.Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}

	text, err := h.chain(ctx, h.model, query, chunks)
	if err != nil {
		return "", chunks, fmt.Errorf("answer: %w", err)
	}
	return text, chunks, nil
}

// Chunks returns the number of chunks in the snapshot.
func (h *RetrievalHandle) Chunks() int {
	return h.index.Len()
}

// Revision returns the store revision the snapshot was loaded at.
func (h *RetrievalHandle) Revision() int64 {
	return h.revision
}

// Model returns the answer model name.
func (h *RetrievalHandle) Model() string {
	return h.model.Model()
}

type state struct {
	handle    *RetrievalHandle
	readiness domain.Readiness
	reason    string
}

var uninitialized = &state{readiness: domain.ReadinessUninitialized}

// Retrieval holds the currently published handle.
// Thread-safe for concurrent access.
type Retrieval struct {
	current atomic.Pointer[state]
}

// NewRetrieval creates a holder with no handle.
func NewRetrieval() *Retrieval {
	r := &Retrieval{}
	r.current.Store(uninitialized)
	return r
}

// Publish makes handle the one new queries are answered from.
func (r *Retrieval) Publish(handle *RetrievalHandle) error {
	if handle == nil {
		return errors.New("publish: nil handle")
	}
	r.current.Store(&state{handle: handle, readiness: domain.ReadinessReady})
	return nil
}

// Fail records why no handle could be built. It has no effect once a
// handle has been published: a later failure never takes a working
// handle away.
func (r *Retrieval) Fail(reason string) {
	next := &state{readiness: domain.ReadinessFailed, reason: reason}
	for {
		cur := r.current.Load()
		if cur.handle != nil {
			return
		}
		if r.current.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Current returns the published handle, nil unless readiness is ready.
func (r *Retrieval) Current() (*RetrievalHandle, domain.Readiness) {
	s := r.current.Load()
	return s.handle, s.readiness
}

// Status reports readiness for the readiness endpoint.
func (r *Retrieval) Status() domain.ReadinessStatus {
	s := r.current.Load()
	status := domain.ReadinessStatus{State: s.readiness, Reason: s.reason}
	if s.handle != nil {
		status.Chunks = s.handle.Chunks()
		status.Revision = s.handle.Revision()
	}
	return status
}
