//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeCipherSpecRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	require.NoError(t, f.WriteChangeCipherSpec())

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, CTChangeCipherSpec, fr.Type)
}

func TestAlertRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	require.NoError(t, f.WriteAlert(AlertLevelFatal, AlertIllegalParameter))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, CTAlert, fr.Type)
	require.NotNil(t, fr.Alert)
	assert.Equal(t, AlertLevelFatal, fr.Alert.Level)
	assert.Equal(t, AlertIllegalParameter, fr.Alert.Description)
}

func TestClientHelloRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	random, err := f.NewRandom()
	require.NoError(t, err)

	hello := &clientHelloMsg{
		version: VersionTLS12,
		random:  random,
		// TLS_ECDH_anon_WITH_AES_256_CBC_SHA
		cipherSuites: []CipherSuite{0xc019},
		compressionMethods: []CompressionMethod{
			CompressionNull, CompressionDeflate,
		},
	}
	require.NoError(t, f.WriteHandshake(hello))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, CTHandshake, fr.Type)
	assert.Equal(t, HTClientHello, fr.Handshake)

	m, ok := fr.Message.(*clientHelloMsg)
	require.True(t, ok)
	assert.Equal(t, VersionTLS12, m.version)
	assert.LessOrEqual(t, int64(m.random.GMTUnixTime), time.Now().Unix())
	assert.Equal(t, random.Opaque, m.random.Opaque)
	assert.Empty(t, m.sessionID)
	assert.Len(t, m.cipherSuites, 1)
	assert.Equal(t, CipherSuite(0xc019), m.cipherSuites[0])
	assert.Equal(t, []CompressionMethod{
		CompressionNull, CompressionDeflate,
	}, m.compressionMethods)
}

func TestClientHelloExtensionsRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	random, err := f.NewRandom()
	require.NoError(t, err)

	hello := &clientHelloMsg{
		version:            VersionTLS12,
		random:             random,
		cipherSuites:       DefaultCipherSuites(),
		compressionMethods: []CompressionMethod{CompressionNull},
		serverName:         "www.example.com",
		supportedCurves:    []CurveID{CurveP256, X25519},
		supportedPoints:    []uint8{pointFormatUncompressed},
		signatureAlgorithms: []SignatureAndHash{
			{Hash: HashSHA256, Signature: SignatureRSA},
		},
	}
	require.NoError(t, f.WriteHandshake(hello))

	fr, err := p.Next()
	require.NoError(t, err)
	m, ok := fr.Message.(*clientHelloMsg)
	require.True(t, ok)
	assert.Equal(t, "www.example.com", m.serverName)
	assert.Equal(t, []CurveID{CurveP256, X25519}, m.supportedCurves)
	assert.Equal(t, []uint8{pointFormatUncompressed}, m.supportedPoints)
	assert.Equal(t, hello.signatureAlgorithms, m.signatureAlgorithms)
}

func TestServerHelloRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	random, err := f.NewRandom()
	require.NoError(t, err)

	hello := &serverHelloMsg{
		version:           VersionTLS12,
		random:            random,
		cipherSuite:       TLS_RSA_WITH_AES_128_CBC_SHA,
		compressionMethod: CompressionNull,
	}
	require.NoError(t, f.WriteHandshake(hello))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTServerHello, fr.Handshake)

	m, ok := fr.Message.(*serverHelloMsg)
	require.True(t, ok)
	assert.Equal(t, VersionTLS12, m.version)
	assert.Equal(t, TLS_RSA_WITH_AES_128_CBC_SHA, m.cipherSuite)
	assert.Equal(t, CompressionNull, m.compressionMethod)
}

func TestCertificateRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	msg := &certificateMsg{
		certificates: [][]byte{[]byte("hello")},
	}
	require.NoError(t, f.WriteHandshake(msg))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTCertificate, fr.Handshake)

	m, ok := fr.Message.(*certificateMsg)
	require.True(t, ok)
	require.Len(t, m.certificates, 1)
	assertEqualBytes(t, []byte("hello"), m.certificates[0])
}

func TestCertificateRequestRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()
	f.version = VersionTLS12
	p.version = VersionTLS12

	msg := &certificateRequestMsg{
		hasSignatureAlgorithms: true,
		certificateTypes:       []ClientCertificateType{CertTypeRSAFixedDH},
		signatureAlgorithms: []SignatureAndHash{
			{Hash: HashSHA1, Signature: SignatureRSA},
		},
		authorities: [][]byte{[]byte("der")},
	}
	require.NoError(t, f.WriteHandshake(msg))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTCertificateRequest, fr.Handshake)

	m, ok := fr.Message.(*certificateRequestMsg)
	require.True(t, ok)
	assert.Equal(t, msg.certificateTypes, m.certificateTypes)
	assert.Equal(t, msg.signatureAlgorithms, m.signatureAlgorithms)
	require.Len(t, m.authorities, 1)
	assertEqualBytes(t, []byte("der"), m.authorities[0])
}

func TestFinishedRoundtrip(t *testing.T) {
	f, p, _ := newTestCodec()

	require.NoError(t, f.WriteHandshake(&finishedMsg{
		verifyData: []byte("hello"),
	}))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTFinished, fr.Handshake)

	m, ok := fr.Message.(*finishedMsg)
	require.True(t, ok)
	assertEqualBytes(t, []byte("hello"), m.verifyData)
}

func TestHandshakeReassembly(t *testing.T) {
	_, p, buf := newTestCodec()

	// One finished message split across three handshake records.
	raw := h2b("14000005") // finished, length 5
	raw = append(raw, []byte("hello")...)
	for _, frag := range [][]byte{raw[:3], raw[3:6], raw[6:]} {
		hdr := []byte{byte(CTHandshake), 0x03, 0x01,
			byte(len(frag) >> 8), byte(len(frag))}
		buf.Write(hdr)
		buf.Write(frag)
	}

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTFinished, fr.Handshake)
	assertEqualBytes(t, raw, fr.RawBody)
}

func TestHandshakeCoalesced(t *testing.T) {
	f, p, _ := newTestCodec()

	// Two messages in flight produce two frames in order.
	require.NoError(t, f.WriteHandshake(&finishedMsg{
		verifyData: []byte("one"),
	}))
	require.NoError(t, f.WriteHandshake(new(serverHelloDoneMsg)))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTFinished, fr.Handshake)

	fr, err = p.Next()
	require.NoError(t, err)
	assert.Equal(t, HTServerHelloDone, fr.Handshake)
}

func TestParserRejectsUnknownContentType(t *testing.T) {
	_, p, buf := newTestCodec()

	buf.Write(h2b("63030100021234"))

	_, err := p.Next()
	require.Error(t, err)
	var alert AlertDescription
	require.True(t, errors.As(err, &alert))
	assert.Equal(t, AlertUnexpectedMessage, alert)
}

func TestParserRejectsOverflow(t *testing.T) {
	_, p, buf := newTestCodec()

	// Length field beyond 2^14 + 2048.
	buf.Write([]byte{byte(CTHandshake), 0x03, 0x01, 0x48, 0x01})

	_, err := p.Next()
	require.Error(t, err)
	var alert AlertDescription
	require.True(t, errors.As(err, &alert))
	assert.Equal(t, AlertRecordOverflow, alert)
}

func TestParserVersionGate(t *testing.T) {
	f, p, _ := newTestCodec()
	f.version = VersionTLS11
	p.version = VersionTLS12

	require.NoError(t, f.WriteChangeCipherSpec())

	_, err := p.Next()
	require.Error(t, err)
	var alert AlertDescription
	require.True(t, errors.As(err, &alert))
	assert.Equal(t, AlertProtocolVersion, alert)
}

func TestParserRejectsBadChangeCipherSpec(t *testing.T) {
	_, p, buf := newTestCodec()

	buf.Write([]byte{byte(CTChangeCipherSpec), 0x03, 0x01, 0x00, 0x01, 0x02})

	_, err := p.Next()
	require.Error(t, err)
	var alert AlertDescription
	require.True(t, errors.As(err, &alert))
	assert.Equal(t, AlertDecodeError, alert)
}

func TestFramerFragmentsLargePayload(t *testing.T) {
	f, p, _ := newTestCodec()

	payload := make([]byte, maxPlaintextLength+100)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, f.WriteApplicationData(payload))

	fr, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, CTApplicationData, fr.Type)
	assert.Len(t, fr.Data, maxPlaintextLength)

	fr, err = p.Next()
	require.NoError(t, err)
	assert.Len(t, fr.Data, 100)
}
