package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore
// implementation adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, s DocumentStore) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := []byte("guid: 6f1c\ntype: nodegraph.FlowChart\n")
		require.NoError(t, s.Save(ctx, name, doc), "Save should not return error")

		loaded, err := s.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, doc, loaded)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, name, []byte("first")))
		require.NoError(t, s.Save(ctx, name, []byte("second")))

		loaded, err := s.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), loaded)
	})

	t.Run("Stored Data Is Isolated", func(t *testing.T) {
		doc := []byte("isolated")
		require.NoError(t, s.Save(ctx, name, doc))
		doc[0] = 'X'

		loaded, err := s.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte("isolated"), loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := s.Load(ctx, "missing-"+name)
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("Invalid Name", func(t *testing.T) {
		for _, bad := range []string{"", "../escape", "a/b", ".hidden"} {
			assert.ErrorIs(t, s.Save(ctx, bad, []byte("x")), ErrInvalidName, bad)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, name, []byte("doomed")))
		require.NoError(t, s.Delete(ctx, name), "Delete should not return error")

		_, err := s.Load(ctx, name)
		assert.ErrorIs(t, err, ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")
		assert.NoError(t, s.Delete(ctx, name), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := name+"-b", name+"-a"
		require.NoError(t, s.Save(ctx, id1, []byte("1")))
		require.NoError(t, s.Save(ctx, id2, []byte("2")))
		defer func() {
			_ = s.Delete(ctx, id1)
			_ = s.Delete(ctx, id2)
		}()

		names, err := s.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
		assert.IsNonDecreasing(t, names)
	})
}
