package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/solstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalManifest(t *testing.T) {
	m := core.NewManifest("/src/app/app.sln")
	m.CreatedAt = m.CreatedAt.Truncate(time.Microsecond)

	decoded, err := UnmarshalManifest(MarshalManifest(m))
	require.NoError(t, err)
	assert.Equal(t, m.FormatVersion, decoded.FormatVersion)
	assert.Equal(t, m.SolutionPath, decoded.SolutionPath)
	assert.True(t, m.CreatedAt.Equal(decoded.CreatedAt))
}

func TestUnmarshalManifest_Invalid(t *testing.T) {
	_, err := UnmarshalManifest([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalBlob(t *testing.T) {
	data := []byte("syntax tree index")
	blob := &core.Blob{Checksum: core.ChecksumOf(data), Data: data}

	decoded, err := UnmarshalBlob(MarshalBlob(blob))
	require.NoError(t, err)
	assert.Equal(t, []byte(blob.Checksum), []byte(decoded.Checksum))
	assert.Equal(t, data, decoded.Data)
}

func TestMarshalBlob_WithoutChecksum(t *testing.T) {
	blob := &core.Blob{Data: []byte{0, 1, 2, 255}}

	decoded, err := UnmarshalBlob(MarshalBlob(blob))
	require.NoError(t, err)
	assert.Empty(t, decoded.Checksum)
	assert.Equal(t, blob.Data, decoded.Data)
}

func TestStoreDirectory(t *testing.T) {
	folder := filepath.Join("cache", "abc")
	assert.Equal(t, StoreDirectory(folder), StoreDirectory(folder))
	assert.Equal(t, folder, filepath.Dir(StoreDirectory(folder)))
}
