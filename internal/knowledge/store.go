package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// Document type tags stored under the "type" metadata key.
const (
	// SourceTypeKB marks an indexed knowledge-base chunk.
	SourceTypeKB = "kb"

	// SourceTypeConversation marks one stored Q&A turn.
	SourceTypeConversation = "conversation"
)

// CollectionName identifies the single embedding collection on disk.
const CollectionName = "assistant_rag"

// ledgerFile tracks conversation document ids inside the store directory.
// chromem-go has no filtered enumeration, so the rolling-window eviction
// keeps its own id ledger; it survives restarts together with the collection.
const ledgerFile = "conversations.json"

type convEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Store is a persistent vector store over a chromem-go collection with
// cosine similarity. It owns embedding generation via the injected Embedder.
//
// Failure policy: the exported read/write operations never surface backend
// or embedding errors to the caller. Reads degrade to empty results and
// writes to logged no-ops, so a broken RAG layer cannot take down the
// assistant loop.
//
// Store is safe for concurrent use, though the assistant serializes access
// through its activation guard.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
	logger     *slog.Logger

	dir  string
	conv []convEntry
}

// Open opens (or creates) the persistent store in dir.
func Open(dir string, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	collection, err := db.GetOrCreateCollection(CollectionName, nil, EmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", CollectionName, err)
	}

	s := &Store{
		db:         db,
		collection: collection,
		embedder:   embedder,
		logger:     logger,
		dir:        dir,
	}
	s.loadLedger()

	return s, nil
}

// Upsert embeds documents and writes/overwrites records keyed by ids.
// No-op on empty input. Any embedding or storage error is logged and
// swallowed.
func (s *Store) Upsert(ctx context.Context, ids, documents []string, metadatas []map[string]string) {
	if len(ids) == 0 || len(documents) == 0 {
		return
	}
	if len(ids) != len(documents) {
		s.logger.Error("upsert rejected: ids and documents length mismatch",
			"ids", len(ids), "documents", len(documents))
		return
	}
	if metadatas != nil && len(metadatas) != len(ids) {
		s.logger.Error("upsert rejected: ids and metadatas length mismatch",
			"ids", len(ids), "metadatas", len(metadatas))
		return
	}
	if metadatas == nil {
		metadatas = make([]map[string]string, len(ids))
	}

	embeddings, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		s.logger.Error("upsert skipped: embedding failed", "count", len(ids), "error", err)
		return
	}

	for i, id := range ids {
		doc := chromem.Document{
			ID:        id,
			Metadata:  metadatas[i],
			Embedding: embeddings[i],
			Content:   documents[i],
		}
		// AddDocument overwrites an existing id, which gives upsert
		// semantics for re-indexing.
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			s.logger.Error("failed to store document", "id", id, "error", err)
		}
	}

	s.logger.Debug("upserted documents", "count", len(ids))
}

// SimilaritySearch returns the topK stored documents closest to query by
// cosine distance. An empty store, embedding failure or backend failure all
// yield an empty result. Ties are broken by ascending document id so
// retrieval is deterministic.
func (s *Store) SimilaritySearch(ctx context.Context, query string, topK int) []string {
	results, err := s.Search(ctx, query, WithTopK(topK))
	if err != nil {
		s.logger.Error("similarity search failed", "error", err)
		return nil
	}

	docs := make([]string, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document.Content)
	}
	return docs
}

// Search is the typed variant of SimilaritySearch. Unlike the exported
// convenience wrappers it returns errors, so callers (and tests) can
// distinguish a backend fault from an empty match set.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)
	if cfg.topK <= 0 {
		cfg.topK = 3
	}

	total := s.collection.Count()
	if total == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// Query the whole collection and rank client-side: collections on this
	// device are small, and it keeps the tie-break and metadata filtering
	// under our control rather than the backend's.
	raw, err := s.collection.QueryEmbedding(ctx, vectors[0], total, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	matched := make([]chromem.Result, 0, len(raw))
	for _, r := range raw {
		if metadataMatches(r.Metadata, cfg.filter) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Similarity != matched[j].Similarity {
			return matched[i].Similarity > matched[j].Similarity
		}
		return matched[i].ID < matched[j].ID
	})

	if len(matched) > cfg.topK {
		matched = matched[:cfg.topK]
	}

	results := make([]Result, 0, len(matched))
	for _, r := range matched {
		results = append(results, Result{
			Document: Document{
				ID:        r.ID,
				Content:   r.Content,
				Metadata:  r.Metadata,
				CreatedAt: timeFromMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

// AddConversation upserts one conversation-tagged record and then prunes
// the conversation set to the maxConversations most recent by timestamp.
// All failures are logged and swallowed.
func (s *Store) AddConversation(ctx context.Context, id, document string, metadata map[string]string, maxConversations int) {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	metadata["type"] = SourceTypeConversation

	s.Upsert(ctx, []string{id}, []string{document}, []map[string]string{metadata})
	if _, err := s.collection.GetByID(ctx, id); err != nil {
		// The upsert was dropped (embedding or backend failure); do not
		// record a ledger entry for a document that never landed.
		return
	}

	s.recordConversation(id, timestampFromMetadata(id, metadata))
	s.pruneConversations(ctx, maxConversations)
	s.saveLedger()
}

// ConversationCount reports how many conversation records are live.
func (s *Store) ConversationCount() int {
	return len(s.conv)
}

// ConversationIDs returns the live conversation ids, oldest first.
func (s *Store) ConversationIDs() []string {
	entries := make([]convEntry, len(s.conv))
	copy(entries, s.conv)
	sortConvEntries(entries)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// Count reports the total number of stored documents.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Delete removes documents by id. Unknown ids are ignored by the backend.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting %d documents: %w", len(ids), err)
	}
	return nil
}

func (s *Store) recordConversation(id string, ts int64) {
	for i := range s.conv {
		if s.conv[i].ID == id {
			s.conv[i].Timestamp = ts
			return
		}
	}
	s.conv = append(s.conv, convEntry{ID: id, Timestamp: ts})
}

func (s *Store) pruneConversations(ctx context.Context, maxConversations int) {
	if maxConversations < 1 || len(s.conv) <= maxConversations {
		return
	}

	sortConvEntries(s.conv)

	excess := s.conv[:len(s.conv)-maxConversations]
	ids := make([]string, len(excess))
	for i, e := range excess {
		ids[i] = e.ID
	}

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		s.logger.Error("failed to prune conversations", "count", len(ids), "error", err)
		return
	}

	s.conv = append([]convEntry(nil), s.conv[len(s.conv)-maxConversations:]...)
	s.logger.Debug("pruned conversations", "deleted", len(ids), "kept", len(s.conv))
}

func (s *Store) ledgerPath() string {
	return filepath.Join(s.dir, ledgerFile)
}

func (s *Store) loadLedger() {
	data, err := os.ReadFile(s.ledgerPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read conversation ledger", "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.conv); err != nil {
		s.logger.Warn("conversation ledger corrupt, starting empty", "error", err)
		s.conv = nil
	}
}

func (s *Store) saveLedger() {
	data, err := json.Marshal(s.conv)
	if err != nil {
		s.logger.Error("failed to encode conversation ledger", "error", err)
		return
	}
	if err := os.WriteFile(s.ledgerPath(), data, 0o600); err != nil {
		s.logger.Error("failed to write conversation ledger", "error", err)
	}
}

// sortConvEntries orders by timestamp ascending, id as tie-break.
func sortConvEntries(entries []convEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		return entries[i].ID < entries[j].ID
	})
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// timeFromMetadata converts a metadata timestamp to time.Time; documents
// without one (knowledge-base chunks) report the zero time.
func timeFromMetadata(metadata map[string]string) time.Time {
	raw, ok := metadata["timestamp"]
	if !ok {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ts)
}

// timestampFromMetadata extracts the unix-millisecond timestamp of a
// conversation record, falling back to the "conv::<millis>" id encoding.
func timestampFromMetadata(id string, metadata map[string]string) int64 {
	if raw, ok := metadata["timestamp"]; ok {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return ts
		}
	}
	if rest, ok := strings.CutPrefix(id, "conv::"); ok {
		if ts, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return ts
		}
	}
	return 0
}
