//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSessionPair derives a matching client and server session for the
// suite and version.
func newSessionPair(t *testing.T, id CipherSuite,
	vers ProtocolVersion) (client, server *Session) {

	t.Helper()
	suite := suiteByID(id)
	require.NotNil(t, suite)

	preMaster := make([]byte, masterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	rand.Read(preMaster)
	rand.Read(clientRandom)
	rand.Read(serverRandom)

	for _, isClient := range []bool{true, false} {
		s := newPendingSession()
		s.load(suite, vers, CompressionNull)
		s.preMaster = append([]byte(nil), preMaster...)
		s.clientRandom = clientRandom
		s.serverRandom = serverRandom
		require.NoError(t, s.deriveKeys(isClient))
		if isClient {
			client = s
		} else {
			server = s
		}
	}
	return client, server
}

func TestRecordEncryptRoundtrip(t *testing.T) {
	suites := []CipherSuite{
		TLS_RSA_WITH_RC4_128_SHA,
		TLS_RSA_WITH_3DES_EDE_CBC_SHA,
		TLS_RSA_WITH_AES_128_CBC_SHA,
		TLS_RSA_WITH_AES_256_CBC_SHA,
		TLS_RSA_WITH_AES_128_CBC_SHA256,
	}
	versions := []ProtocolVersion{VersionTLS10, VersionTLS11, VersionTLS12}

	for _, id := range suites {
		for _, vers := range versions {
			if suiteByID(id).minVersion > vers {
				continue
			}
			client, server := newSessionPair(t, id, vers)

			payload := []byte("attack at dawn")
			wire, err := client.encrypt(CTApplicationData, vers, payload,
				rand.Reader)
			require.NoError(t, err)
			if suiteByID(id).kind == cipherBlock {
				assert.NotEqual(t, payload, wire)
			}

			plain, err := server.decrypt(CTApplicationData, vers, wire)
			require.NoError(t, err, "%v %v", id, vers)
			assertEqualBytes(t, payload, plain)

			assert.Equal(t, uint64(1), client.writeSeq)
			assert.Equal(t, uint64(1), server.readSeq)
		}
	}
}

func TestRecordSequenceNumbers(t *testing.T) {
	client, server := newSessionPair(t, TLS_RSA_WITH_AES_128_CBC_SHA,
		VersionTLS12)

	for i := 0; i < 5; i++ {
		wire, err := client.encrypt(CTApplicationData, VersionTLS12,
			[]byte("ping"), rand.Reader)
		require.NoError(t, err)
		_, err = server.decrypt(CTApplicationData, VersionTLS12, wire)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(5), client.writeSeq)
	assert.Equal(t, uint64(5), server.readSeq)

	// Replaying a record under the advanced counter fails.
	wire, err := client.encrypt(CTApplicationData, VersionTLS12,
		[]byte("ping"), rand.Reader)
	require.NoError(t, err)
	_, err = server.decrypt(CTApplicationData, VersionTLS12, wire)
	require.NoError(t, err)
	_, err = server.decrypt(CTApplicationData, VersionTLS12, wire)
	require.Error(t, err)
}

func TestRecordMACForgery(t *testing.T) {
	for _, id := range []CipherSuite{
		TLS_RSA_WITH_RC4_128_SHA,
		TLS_RSA_WITH_AES_128_CBC_SHA,
	} {
		client, server := newSessionPair(t, id, VersionTLS12)

		wire, err := client.encrypt(CTApplicationData, VersionTLS12,
			[]byte("attack at dawn"), rand.Reader)
		require.NoError(t, err)

		// A single flipped bit must fail authentication.
		wire[len(wire)/2] ^= 0x01
		_, err = server.decrypt(CTApplicationData, VersionTLS12, wire)
		require.Error(t, err)

		var alert AlertDescription
		require.True(t, errors.As(err, &alert))
		assert.Equal(t, AlertBadRecordMAC, alert)
	}
}

func TestRecordBadPadding(t *testing.T) {
	client, server := newSessionPair(t, TLS_RSA_WITH_AES_128_CBC_SHA,
		VersionTLS10)

	wire, err := client.encrypt(CTApplicationData, VersionTLS10,
		[]byte("attack at dawn"), rand.Reader)
	require.NoError(t, err)

	// Corrupting the final block garbles the padding.
	wire[len(wire)-1] ^= 0xff
	_, err = server.decrypt(CTApplicationData, VersionTLS10, wire)
	require.Error(t, err)

	var alert AlertDescription
	require.True(t, errors.As(err, &alert))
	assert.Equal(t, AlertBadRecordMAC, alert)
}

func TestExtractPadding(t *testing.T) {
	// Well-formed: all padLen+1 trailing bytes equal padLen.
	payload := append([]byte("data"), 3, 3, 3, 3)
	toRemove, good := extractPadding(payload)
	assert.Equal(t, 4, toRemove)
	assert.Equal(t, byte(255), good)

	// One padding byte differs from the length.
	payload = append([]byte("data"), 2, 3, 3, 3)
	_, good = extractPadding(payload)
	assert.Equal(t, byte(0), good)

	// Length byte larger than the payload.
	_, good = extractPadding([]byte{1, 2, 250})
	assert.Equal(t, byte(0), good)

	// Zero padding length is the single length byte.
	toRemove, good = extractPadding(append([]byte("data"), 0))
	assert.Equal(t, 1, toRemove)
	assert.Equal(t, byte(255), good)
}

// TestExplicitIVOnWire pins the TLS 1.1+ record format: the random
// IV travels in the clear and fully resets the CBC state, so nothing
// chains from one record into the next.
func TestExplicitIVOnWire(t *testing.T) {
	client, server := newSessionPair(t, TLS_RSA_WITH_AES_128_CBC_SHA,
		VersionTLS12)

	iv := h2b("000102030405060708090a0b0c0d0e0f")
	rnd := bytes.NewReader(append(append([]byte(nil), iv...), iv...))

	payload := []byte("same plaintext..")
	first, err := client.encrypt(CTApplicationData, VersionTLS12, payload,
		rnd)
	require.NoError(t, err)
	assertEqualBytes(t, iv, first[:16])

	plain, err := server.decrypt(CTApplicationData, VersionTLS12, first)
	require.NoError(t, err)
	assertEqualBytes(t, payload, plain)

	// A second record under the same forced IV produces the same
	// ciphertext blocks: no state survives from the previous record.
	// (The MAC differs with the sequence number, so only the leading
	// payload blocks compare.)
	second, err := client.encrypt(CTApplicationData, VersionTLS12, payload,
		rnd)
	require.NoError(t, err)
	assertEqualBytes(t, first[:16+16], second[:16+16])
}

func TestNullSessionPassthrough(t *testing.T) {
	s := newSession()

	payload := []byte("plaintext")
	wire, err := s.encrypt(CTHandshake, VersionTLS10, payload, rand.Reader)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, wire))
	assert.Equal(t, uint64(1), s.writeSeq)

	plain, err := s.decrypt(CTHandshake, VersionTLS10, wire)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, plain))
	assert.Equal(t, uint64(1), s.readSeq)
}

func TestTLS10ChainedIV(t *testing.T) {
	// TLS 1.0 records carry no explicit IV; the CBC state chains
	// across records and both directions must stay in step.
	client, server := newSessionPair(t, TLS_RSA_WITH_AES_128_CBC_SHA,
		VersionTLS10)

	for i := 0; i < 3; i++ {
		wire, err := client.encrypt(CTApplicationData, VersionTLS10,
			[]byte("chained record"), rand.Reader)
		require.NoError(t, err)
		plain, err := server.decrypt(CTApplicationData, VersionTLS10, wire)
		require.NoError(t, err)
		assertEqualBytes(t, []byte("chained record"), plain)
	}
}
