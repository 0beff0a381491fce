//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TLS 1.2 PRF test vector with SHA-256 ("test label").
func TestPRF12Vector(t *testing.T) {
	secret := h2b("9bbe436ba940f017b17652849a71db35")
	seed := h2b("a0ba9f936cda311827a6f796ffd5198c")
	expected := h2b(
		"e3f229ba727be17b8d122620557cd453c2aab21d07c3d495329b52d4e61edb5a" +
			"6b301791e90d35c9c9a46b4e14baf9af0fa022f7077def17abfd3797c0564bab" +
			"4fbc91666e9def9b97fce34f796789baa48082d122ee42c5a72e5a5110fff701" +
			"87347b66")

	out := make([]byte, len(expected))
	prf12(sha256.New)(out, secret, "test label", seed)
	assertEqualBytes(t, expected, out)
}

func TestPRF10Deterministic(t *testing.T) {
	secret := h2b("abababababababababababababababab")
	seed := h2b("cdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd")

	a := make([]byte, 64)
	b := make([]byte, 64)
	prf10(a, secret, "test label", seed)
	prf10(b, secret, "test label", seed)
	assertEqualBytes(t, a, b)

	// A different label diverges.
	c := make([]byte, 64)
	prf10(c, secret, "other label", seed)
	assert.NotEqual(t, a, c)
}

func TestMasterSecretAgreement(t *testing.T) {
	suite := suiteByID(TLS_RSA_WITH_AES_128_CBC_SHA)

	preMaster := h2b("0303" +
		"000102030405060708090a0b0c0d0e0f1011121314151617" +
		"18191a1b1c1d1e1f202122232425262728292a2b2c2d")
	require.Len(t, preMaster, masterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)
	for i := range clientRandom {
		clientRandom[i] = byte(i)
		serverRandom[i] = byte(32 - i)
	}

	for _, vers := range []ProtocolVersion{
		VersionTLS10, VersionTLS11, VersionTLS12,
	} {
		client := masterFromPreMaster(vers, suite, preMaster, clientRandom,
			serverRandom)
		server := masterFromPreMaster(vers, suite, preMaster, clientRandom,
			serverRandom)
		require.Len(t, client, masterSecretLength)
		assertEqualBytes(t, client, server)
	}
}

func TestKeyBlockSplit(t *testing.T) {
	suite := suiteByID(TLS_RSA_WITH_AES_256_CBC_SHA)
	master := make([]byte, masterSecretLength)
	clientRandom := make([]byte, 32)
	serverRandom := make([]byte, 32)

	// TLS 1.0 allocates the CBC IVs from the key block.
	clientMAC, serverMAC, clientKey, serverKey, clientIV, serverIV :=
		keysFromMaster(VersionTLS10, suite, master, clientRandom,
			serverRandom)

	assert.Len(t, clientMAC, suite.macLen)
	assert.Len(t, serverMAC, suite.macLen)
	assert.Len(t, clientKey, suite.keyLen)
	assert.Len(t, serverKey, suite.keyLen)
	assert.Len(t, clientIV, suite.blockLen)
	assert.Len(t, serverIV, suite.blockLen)
	assert.NotEqual(t, clientKey, serverKey)

	// Explicit-IV versions derive none. TLS 1.1 shares the TLS 1.0
	// PRF, so the shorter key block leaves the preceding materials
	// unchanged.
	mac10 := clientMAC
	key10 := clientKey
	clientMAC, serverMAC, clientKey, serverKey, clientIV, serverIV =
		keysFromMaster(VersionTLS11, suite, master, clientRandom,
			serverRandom)

	assert.Len(t, clientMAC, suite.macLen)
	assert.Len(t, serverMAC, suite.macLen)
	assert.Len(t, clientKey, suite.keyLen)
	assert.Len(t, serverKey, suite.keyLen)
	assert.Empty(t, clientIV)
	assert.Empty(t, serverIV)
	assertEqualBytes(t, mac10, clientMAC)
	assertEqualBytes(t, key10, clientKey)
}

func TestTranscriptHashLengths(t *testing.T) {
	suite := suiteByID(TLS_RSA_WITH_AES_128_CBC_SHA)
	messages := []byte("handshake transcript")

	// MD5 || SHA1 for TLS 1.0/1.1.
	digest := transcriptHash(VersionTLS10, suite, messages)
	assert.Len(t, digest, 16+20)

	// Suite PRF hash for TLS 1.2.
	digest = transcriptHash(VersionTLS12, suite, messages)
	assert.Len(t, digest, sha256.Size)
}

func TestFinishedVerifyData(t *testing.T) {
	suite := suiteByID(TLS_RSA_WITH_AES_128_CBC_SHA)

	newFinishedSession := func() *Session {
		s := newPendingSession()
		s.load(suite, VersionTLS12, CompressionNull)
		s.masterSecret = make([]byte, masterSecretLength)
		s.addHandshakeMessage([]byte("transcript"))
		return s
	}

	client := newFinishedSession().finishedVerify(labelClientFinished)
	server := newFinishedSession().finishedVerify(labelServerFinished)

	assert.Len(t, client, suite.verifyLen)
	assert.Len(t, server, suite.verifyLen)
	assert.NotEqual(t, client, server)
}
