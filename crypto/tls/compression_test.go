//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullCompression(t *testing.T) {
	data := []byte("uncompressed")
	out, err := CompressionNull.compress(data)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, out))

	out, err = CompressionNull.decompress(out)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, out))
}

func TestDeflateRoundtrip(t *testing.T) {
	data := bytes.Repeat([]byte("compressible record payload "), 100)

	compressed, err := CompressionDeflate.compress(data)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))

	out, err := CompressionDeflate.decompress(compressed)
	require.NoError(t, err)
	assertEqualBytes(t, data, out)
}

func TestDeflateGarbage(t *testing.T) {
	_, err := CompressionDeflate.decompress([]byte("not deflate data"))
	require.Error(t, err)
}
