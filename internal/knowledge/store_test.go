package knowledge_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpi/voxpi/internal/knowledge"
	"github.com/voxpi/voxpi/internal/testutil"
)

func newStore(t *testing.T, dir string) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Open(dir, testutil.NewHashEmbedder(), testutil.DiscardLogger())
	require.NoError(t, err)
	return store
}

func TestStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx,
		[]string{"kb::colors.txt::chunk::0", "kb::animals.txt::chunk::0"},
		[]string{"the sky is blue and the grass is green", "cats and dogs are common pets"},
		[]map[string]string{
			{"type": knowledge.SourceTypeKB},
			{"type": knowledge.SourceTypeKB},
		},
	)
	assert.Equal(t, 2, store.Count())

	docs := store.SimilaritySearch(ctx, "what color is the sky", 1)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "blue")
}

func TestStore_UpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx, []string{"kb::a.txt::chunk::0"}, []string{"old content"}, nil)
	store.Upsert(ctx, []string{"kb::a.txt::chunk::0"}, []string{"new content"}, nil)

	assert.Equal(t, 1, store.Count())
	docs := store.SimilaritySearch(ctx, "new content", 1)
	require.Len(t, docs, 1)
	assert.Equal(t, "new content", docs[0])
}

func TestStore_UpsertLengthMismatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx, []string{"a", "b"}, []string{"only one"}, nil)
	assert.Equal(t, 0, store.Count())
}

func TestStore_UpsertMetadataLengthMismatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	// A short metadata slice is rejected as a logged no-op, same as any
	// other malformed write.
	assert.NotPanics(t, func() {
		store.Upsert(ctx,
			[]string{"a", "b"},
			[]string{"first", "second"},
			[]map[string]string{{"type": knowledge.SourceTypeKB}},
		)
	})
	assert.Equal(t, 0, store.Count())
}

func TestStore_SearchEmptyStore(t *testing.T) {
	store := newStore(t, t.TempDir())
	assert.Empty(t, store.SimilaritySearch(context.Background(), "anything", 3))
}

func TestStore_SearchTopKClamped(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx, []string{"doc1"}, []string{"a single document"}, nil)

	// Asking for more results than exist must not error out.
	docs := store.SimilaritySearch(ctx, "single document", 10)
	assert.Len(t, docs, 1)
}

func TestStore_SearchMetadataFilter(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx,
		[]string{"kb::x", "conv::1"},
		[]string{"shared words here", "shared words here too"},
		[]map[string]string{
			{"type": knowledge.SourceTypeKB},
			{"type": knowledge.SourceTypeConversation},
		},
	)

	results, err := store.Search(ctx, "shared words",
		knowledge.WithTopK(10),
		knowledge.WithFilter("type", knowledge.SourceTypeKB))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kb::x", results[0].Document.ID)
}

func TestStore_SearchTieBreakByID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	// Identical content embeds identically, so similarity ties and the
	// ascending-id tie-break decides the order.
	store.Upsert(ctx,
		[]string{"doc::b", "doc::a", "doc::c"},
		[]string{"same text", "same text", "same text"},
		nil,
	)

	results, err := store.Search(ctx, "same text", knowledge.WithTopK(3))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "doc::a", results[0].Document.ID)
	assert.Equal(t, "doc::b", results[1].Document.ID)
	assert.Equal(t, "doc::c", results[2].Document.ID)
}

func TestStore_FailingEmbedderDegrades(t *testing.T) {
	ctx := context.Background()
	store, err := knowledge.Open(t.TempDir(), testutil.FailingEmbedder{}, testutil.DiscardLogger())
	require.NoError(t, err)

	// Writes become no-ops, reads come back empty; nothing panics or
	// surfaces an error to the loop.
	store.Upsert(ctx, []string{"id"}, []string{"doc"}, nil)
	assert.Equal(t, 0, store.Count())
	assert.Empty(t, store.SimilaritySearch(ctx, "query", 3))
}

func TestStore_RollingConversationWindow(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	const window = 5
	for i := 0; i < window+3; i++ {
		ts := int64(1000 + i)
		store.AddConversation(ctx,
			fmt.Sprintf("conv::%d", ts),
			fmt.Sprintf("User: question %d\nAssistant: answer %d", i, i),
			map[string]string{"timestamp": fmt.Sprintf("%d", ts)},
			window,
		)
	}

	assert.Equal(t, window, store.ConversationCount())
	assert.Equal(t, window, store.Count())

	// Oldest three were evicted.
	ids := store.ConversationIDs()
	require.Len(t, ids, window)
	assert.Equal(t, "conv::1003", ids[0])
	assert.Equal(t, "conv::1007", ids[len(ids)-1])
}

func TestStore_ConversationsDoNotEvictKB(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx, []string{"kb::facts.txt::chunk::0"}, []string{"a fact"},
		[]map[string]string{{"type": knowledge.SourceTypeKB}})

	for i := 0; i < 4; i++ {
		ts := int64(2000 + i)
		store.AddConversation(ctx, fmt.Sprintf("conv::%d", ts), "User: q\nAssistant: a",
			map[string]string{"timestamp": fmt.Sprintf("%d", ts)}, 2)
	}

	// 1 kb chunk + 2 conversations survive.
	assert.Equal(t, 3, store.Count())
	assert.Equal(t, 2, store.ConversationCount())
}

func TestStore_LedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := newStore(t, dir)
	for i := 0; i < 3; i++ {
		ts := int64(3000 + i)
		store.AddConversation(ctx, fmt.Sprintf("conv::%d", ts), "User: q\nAssistant: a",
			map[string]string{"timestamp": fmt.Sprintf("%d", ts)}, 10)
	}

	reopened := newStore(t, dir)
	assert.Equal(t, 3, reopened.ConversationCount())
	assert.Equal(t, 3, reopened.Count())

	// The window keeps counting down across restarts.
	reopened.AddConversation(ctx, "conv::3010", "User: q\nAssistant: a",
		map[string]string{"timestamp": "3010"}, 2)
	assert.Equal(t, 2, reopened.ConversationCount())
	assert.Equal(t, []string{"conv::3002", "conv::3010"}, reopened.ConversationIDs())
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, t.TempDir())

	store.Upsert(ctx, []string{"a", "b"}, []string{"first", "second"}, nil)
	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, 1, store.Count())
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")

	store := newStore(t, dir)
	store.Upsert(ctx, []string{"kb::x"}, []string{"persistent fact about turtles"}, nil)

	reopened := newStore(t, dir)
	docs := reopened.SimilaritySearch(ctx, "fact about turtles", 1)
	require.Len(t, docs, 1)
	assert.Equal(t, "persistent fact about turtles", docs[0])
}
