package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrack/internal/store"
)

func TestDecodeChange(t *testing.T) {
	change, err := decodeChange([]byte(`{"collection":"tasks","op":"update","task_id":"a1","owner_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, store.Change{
		Collection: store.CollectionTasks,
		Op:         store.OpUpdate,
		TaskID:     "a1",
		OwnerID:    "u1",
	}, change)

	change, err = decodeChange([]byte(`{"collection":"task_histories","op":"insert","task_id":"a1","owner_id":""}`))
	require.NoError(t, err)
	assert.Equal(t, store.CollectionHistories, change.Collection)
	assert.Empty(t, change.OwnerID)

	_, err = decodeChange([]byte(`{"collection":"agents","op":"insert"}`))
	assert.Error(t, err)

	_, err = decodeChange([]byte(`not json`))
	assert.Error(t, err)
}
