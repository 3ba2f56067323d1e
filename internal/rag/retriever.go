// Package rag implements the retrieval-augmented-generation memory of the
// assistant: knowledge-base indexing at startup, query-time context
// retrieval, and conversation history write-back with rolling eviction.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/voxpi/voxpi/internal/knowledge"
)

// DefaultTopK is the number of context documents retrieved per query.
const DefaultTopK = 3

// DefaultMaxConversations bounds the rolling conversation window.
const DefaultMaxConversations = 100

// ContextStore defines the storage operations the Retriever needs.
// The interface is defined by the consumer; knowledge.Store satisfies it.
type ContextStore interface {
	Upsert(ctx context.Context, ids, documents []string, metadatas []map[string]string)
	SimilaritySearch(ctx context.Context, query string, topK int) []string
	AddConversation(ctx context.Context, id, document string, metadata map[string]string, maxConversations int)
}

// Config tunes the retriever. Zero values fall back to the defaults above.
type Config struct {
	KnowledgeDir     string
	ChunkSize        int
	ChunkOverlap     int
	MaxConversations int
}

// Retriever orchestrates the RAG layer for the assistant loop.
type Retriever struct {
	store  ContextStore
	cfg    Config
	logger *slog.Logger

	lastConvID int64 // monotonic guard for millisecond conversation ids
}

// New creates a Retriever. Call IndexKnowledgeBase once at startup to load
// the knowledge directory into the store.
func New(store ContextStore, cfg Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = DefaultMaxConversations
	}

	return &Retriever{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// IndexKnowledgeBase loads every .txt file from the knowledge directory,
// chunks it, and bulk-upserts the chunks. Chunk ids are deterministic
// ("kb::{file}::chunk::{index}"), so re-running with unchanged files is
// idempotent: the same ids overwrite with identical content.
//
// Unreadable files are skipped with a warning; a missing directory indexes
// nothing. Returns the number of chunks submitted.
func (r *Retriever) IndexKnowledgeBase(ctx context.Context) int {
	dir := r.cfg.KnowledgeDir
	if dir == "" {
		return 0
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Warn("knowledge base directory unreadable, skipping indexing",
			"dir", dir, "error", err)
		return 0
	}

	var ids, docs []string
	var metas []map[string]string

	// os.ReadDir sorts by name, so chunk ids are assigned in a stable order.
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			r.logger.Warn("failed to read knowledge file, skipping",
				"file", entry.Name(), "error", err)
			continue
		}

		content := strings.TrimSpace(string(raw))
		if content == "" {
			continue
		}

		for i, chunk := range Chunk(content, r.cfg.ChunkSize, r.cfg.ChunkOverlap) {
			ids = append(ids, fmt.Sprintf("kb::%s::chunk::%d", entry.Name(), i))
			docs = append(docs, chunk)
			metas = append(metas, map[string]string{
				"type":        knowledge.SourceTypeKB,
				"source":      entry.Name(),
				"chunk_index": strconv.Itoa(i),
			})
		}
	}

	if len(ids) == 0 {
		r.logger.Info("no knowledge base files to index", "dir", dir)
		return 0
	}

	r.store.Upsert(ctx, ids, docs, metas)
	r.logger.Info("indexed knowledge base", "chunks", len(ids), "dir", dir)
	return len(ids)
}

// RetrieveContext returns the most relevant stored documents for query.
// A blank query returns nil immediately, without wasting an embedding
// call; any retrieval failure also yields nil so the caller falls back to
// context-free generation.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, topK int) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return r.store.SimilaritySearch(ctx, query, topK)
}

// AddConversation stores one completed Q&A turn as a single document and
// lets the store enforce the rolling window. A turn where both sides are
// blank is dropped.
func (r *Retriever) AddConversation(ctx context.Context, question, answer string) {
	r.addTurn(ctx, question, answer, "chat")
}

// AddDetection stores an object-detection turn: the detected labels stand
// in for the user question and the generated explanation for the answer.
func (r *Retriever) AddDetection(ctx context.Context, labels []string, explanation string) {
	r.addTurn(ctx, strings.Join(labels, ", "), explanation, "detection")
}

func (r *Retriever) addTurn(ctx context.Context, question, answer, mode string) {
	q := strings.TrimSpace(question)
	a := strings.TrimSpace(answer)
	if q == "" && a == "" {
		return
	}

	ts := r.nextConvID(time.Now().UnixMilli())
	id := fmt.Sprintf("conv::%d", ts)
	document := fmt.Sprintf("User: %s\nAssistant: %s", q, a)
	metadata := map[string]string{
		"type":      knowledge.SourceTypeConversation,
		"timestamp": strconv.FormatInt(ts, 10),
		"mode":      mode,
	}

	r.store.AddConversation(ctx, id, document, metadata, r.cfg.MaxConversations)
}

// nextConvID keeps conversation ids strictly increasing even when two
// turns complete within the same millisecond.
func (r *Retriever) nextConvID(now int64) int64 {
	if now <= r.lastConvID {
		now = r.lastConvID + 1
	}
	r.lastConvID = now
	return now
}
