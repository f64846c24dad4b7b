package tests

import (
	"context"
	"testing"
	"time"

	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunThreadStoreContract runs a suite of tests to verify that a ThreadStore implementation
// adheres to the defined interface contract.
func RunThreadStoreContract(t *testing.T, store ports.ThreadStore) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		thread := &ports.Thread{
			ID: threadID,
			Messages: []domain.Message{
				domain.HumanMessage("I forgot my password"),
				domain.AIMessage("Use the reset link on the login page."),
			},
			TicketID:  "t-1",
			UpdatedAt: time.Now().UTC().Truncate(time.Second),
		}

		err := store.Save(ctx, thread)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, thread.ID, loaded.ID)
		assert.Equal(t, thread.Messages, loaded.Messages)
		assert.Equal(t, "t-1", loaded.TicketID)
		assert.True(t, thread.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		loaded.Messages = append(loaded.Messages, domain.HumanMessage("mutation"))

		again, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Len(t, again.Messages, 2, "mutating a loaded thread must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, &ports.Thread{ID: threadID})
		require.NoError(t, err)

		err = store.Delete(ctx, threadID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound, "Load after Delete should return ErrThreadNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		require.NoError(t, store.Save(ctx, &ports.Thread{ID: id1}))
		require.NoError(t, store.Save(ctx, &ports.Thread{ID: id2}))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}
