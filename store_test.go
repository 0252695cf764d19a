package webchat

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	store, err := OpenStore(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAppendAndHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Message{SessionID: "s1", Role: "user", Body: "hi"}))
	require.NoError(t, store.Append(ctx, Message{SessionID: "s1", Role: "assistant", Body: "**hello**", HTML: "<p><strong>hello</strong></p>"}))
	require.NoError(t, store.Append(ctx, Message{SessionID: "s2", Role: "user", Body: "other session"}))

	msgs, err := store.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.False(t, msgs[0].CreatedAt.IsZero())

	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "**hello**", msgs[1].Body)
	assert.Equal(t, "<p><strong>hello</strong></p>", msgs[1].HTML)
}

func TestStoreHistoryLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Message{SessionID: "s1", Role: "user", Body: "m"}))
	}

	msgs, err := store.History(ctx, "s1", 3)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestStoreHistoryUnknownSession(t *testing.T) {
	store := setupTestStore(t)

	msgs, err := store.History(context.Background(), "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
