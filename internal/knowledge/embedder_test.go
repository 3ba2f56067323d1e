package knowledge_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpi/voxpi/internal/knowledge"
	"github.com/voxpi/voxpi/internal/testutil"
)

func TestLazy_BuildsOnce(t *testing.T) {
	var builds int
	inner := testutil.NewHashEmbedder()
	lazy := knowledge.NewLazy(func() (knowledge.Embedder, error) {
		builds++
		return inner, nil
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.Embed(ctx, []string{"hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, builds)
	assert.Equal(t, 10, inner.Calls())
}

func TestLazy_StickyError(t *testing.T) {
	buildErr := errors.New("model missing")
	var builds int
	lazy := knowledge.NewLazy(func() (knowledge.Embedder, error) {
		builds++
		return nil, buildErr
	})

	ctx := context.Background()
	_, err := lazy.Embed(ctx, []string{"a"})
	require.ErrorIs(t, err, buildErr)

	// A failed build is not retried.
	_, err = lazy.Embed(ctx, []string{"b"})
	require.ErrorIs(t, err, buildErr)
	assert.Equal(t, 1, builds)
}

func TestEmbeddingFunc_Bridge(t *testing.T) {
	fn := knowledge.EmbeddingFunc(testutil.NewHashEmbedder())

	vec, err := fn(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, testutil.HashEmbedderDim)
}

func TestEmbeddingFunc_PropagatesError(t *testing.T) {
	fn := knowledge.EmbeddingFunc(testutil.FailingEmbedder{})

	_, err := fn(context.Background(), "hello")
	assert.Error(t, err)
}
