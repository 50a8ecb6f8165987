package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrack/internal/config"
)

func TestParseStoreKind(t *testing.T) {
	kind, err := config.ParseStoreKind("memory")
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, kind)

	kind, err = config.ParseStoreKind("postgres")
	require.NoError(t, err)
	assert.Equal(t, config.StorePostgres, kind)

	_, err = config.ParseStoreKind("sqlite")
	assert.Error(t, err)
}
