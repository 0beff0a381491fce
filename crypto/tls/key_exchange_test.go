//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/rand"
	"crypto/rsa"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKxConn(t *testing.T, isClient bool) *Conn {
	t.Helper()
	pipe, other := net.Pipe()
	t.Cleanup(func() {
		pipe.Close()
		other.Close()
	})

	config := serverConfig()
	var c *Conn
	if isClient {
		c = Client(pipe, config)
	} else {
		c = Server(pipe, config)
	}
	c.vers = VersionTLS12
	c.offeredVersion = VersionTLS12
	c.pending.clientRandom = make([]byte, 32)
	c.pending.serverRandom = make([]byte, 32)
	rand.Read(c.pending.clientRandom)
	rand.Read(c.pending.serverRandom)
	return c
}

func TestRSAKeyExchange(t *testing.T) {
	client := newKxConn(t, true)
	server := newKxConn(t, false)
	server.pending.clientRandom = client.pending.clientRandom
	server.pending.serverRandom = client.pending.serverRandom
	client.peerKey = &testKey.PublicKey

	cka := new(rsaKeyAgreement)
	preMaster, ckx, err := cka.generateClientKeyExchange(client)
	require.NoError(t, err)
	require.Len(t, preMaster, masterSecretLength)
	assert.Equal(t, byte(0x03), preMaster[0])
	assert.Equal(t, byte(0x03), preMaster[1])

	ska := new(rsaKeyAgreement)
	serverPreMaster, err := ska.processClientKeyExchange(server, ckx)
	require.NoError(t, err)
	require.Nil(t, server.deferredErr)
	assertEqualBytes(t, preMaster, serverPreMaster)
}

// A garbled RSA ciphertext must not fail immediately: the server
// continues with a random premaster and defers the failure past
// Finished verification.
func TestRSAKeyExchangeDeferred(t *testing.T) {
	server := newKxConn(t, false)

	garbage := make([]byte, 256)
	rand.Read(garbage)
	exchange := append([]byte{0x01, 0x00}, garbage...)

	ka := new(rsaKeyAgreement)
	preMaster, err := ka.processClientKeyExchange(server,
		&clientKeyExchangeMsg{exchange: exchange})
	require.NoError(t, err)
	require.Len(t, preMaster, masterSecretLength)

	require.Error(t, server.deferredErr)
	var alert AlertDescription
	require.True(t, errors.As(server.deferredErr, &alert))
	assert.Equal(t, AlertProtocolVersion, alert)
}

// A premaster encrypted with the wrong client version defers the
// same way.
func TestRSAKeyExchangeVersionMismatch(t *testing.T) {
	server := newKxConn(t, false)

	preMaster := make([]byte, masterSecretLength)
	rand.Read(preMaster)
	preMaster[0] = 0x03
	preMaster[1] = 0x01 // offered was TLS 1.2
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, &testKey.PublicKey,
		preMaster)
	require.NoError(t, err)

	exchange := append([]byte{
		byte(len(encrypted) >> 8), byte(len(encrypted)),
	}, encrypted...)

	ka := new(rsaKeyAgreement)
	got, err := ka.processClientKeyExchange(server,
		&clientKeyExchangeMsg{exchange: exchange})
	require.NoError(t, err)
	assert.NotEqual(t, preMaster, got)
	require.Error(t, server.deferredErr)
}

func TestECDHEKeyExchange(t *testing.T) {
	for _, curves := range [][]CurveID{
		{CurveP256},
		{CurveP384},
		{X25519},
	} {
		client := newKxConn(t, true)
		server := newKxConn(t, false)
		server.pending.clientRandom = client.pending.clientRandom
		server.pending.serverRandom = client.pending.serverRandom
		client.peerKey = &testKey.PublicKey
		server.config = &Config{
			Certificates: [][]byte{testCert},
			PrivateKey:   testKey,
			Curves:       curves,
		}

		hello := &clientHelloMsg{supportedCurves: curves}
		ska := new(ecdheKeyAgreement)
		skx, err := ska.generateServerKeyExchange(server, hello)
		require.NoError(t, err)
		require.NotNil(t, skx)

		cka := new(ecdheKeyAgreement)
		require.NoError(t, cka.processServerKeyExchange(client, skx))
		assert.Equal(t, curves[0], cka.curveID)

		preMaster, ckx, err := cka.generateClientKeyExchange(client)
		require.NoError(t, err)

		serverPreMaster, err := ska.processClientKeyExchange(server, ckx)
		require.NoError(t, err)
		assertEqualBytes(t, preMaster, serverPreMaster)
	}
}

// A tampered parameter signature fails verification.
func TestECDHESignatureTamper(t *testing.T) {
	client := newKxConn(t, true)
	server := newKxConn(t, false)
	server.pending.clientRandom = client.pending.clientRandom
	server.pending.serverRandom = client.pending.serverRandom
	client.peerKey = &testKey.PublicKey

	hello := &clientHelloMsg{supportedCurves: []CurveID{CurveP256}}
	ska := new(ecdheKeyAgreement)
	skx, err := ska.generateServerKeyExchange(server, hello)
	require.NoError(t, err)

	skx.key[len(skx.key)-1] ^= 0x01
	cka := new(ecdheKeyAgreement)
	err = cka.processServerKeyExchange(client, skx)
	require.Error(t, err)

	var alert AlertDescription
	require.True(t, errors.As(err, &alert))
	assert.Equal(t, AlertDecryptError, alert)
}
