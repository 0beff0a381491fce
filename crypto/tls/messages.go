//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

// handshakeMessage is implemented by every handshake message body.
// marshal produces the body without the 4-byte handshake header;
// unmarshal consumes exactly the body.
type handshakeMessage interface {
	typ() HandshakeType
	marshal() ([]byte, error)
	unmarshal(data []byte) error
}

// Random is the 32-byte hello random: 4-byte big-endian unix seconds
// followed by 28 opaque bytes.
type Random struct {
	GMTUnixTime uint32
	Opaque      [28]byte
}

func (r *Random) bytes() []byte {
	out := make([]byte, 0, 32)
	out = append(out, byte(r.GMTUnixTime>>24), byte(r.GMTUnixTime>>16),
		byte(r.GMTUnixTime>>8), byte(r.GMTUnixTime))
	return append(out, r.Opaque[:]...)
}

func (r *Random) setBytes(data []byte) {
	r.GMTUnixTime = uint32(data[0])<<24 | uint32(data[1])<<16 |
		uint32(data[2])<<8 | uint32(data[3])
	copy(r.Opaque[:], data[4:32])
}

func addRandom(b *cryptobyte.Builder, r *Random) {
	b.AddUint32(r.GMTUnixTime)
	b.AddBytes(r.Opaque[:])
}

func readRandom(s *cryptobyte.String, r *Random) bool {
	var raw []byte
	if !s.ReadBytes(&raw, 32) {
		return false
	}
	r.setBytes(raw)
	return true
}

func decodeErrorf(format string, a ...interface{}) error {
	return errors.Wrapf(AlertDecodeError, format, a...)
}

// rawExtension preserves a hello extension this implementation does
// not interpret.
type rawExtension struct {
	id   uint16
	data []byte
}

// helloRequestMsg implements the hello_request message.
type helloRequestMsg struct{}

func (m *helloRequestMsg) typ() HandshakeType { return HTHelloRequest }

func (m *helloRequestMsg) marshal() ([]byte, error) { return nil, nil }

func (m *helloRequestMsg) unmarshal(data []byte) error {
	if len(data) != 0 {
		return decodeErrorf("hello_request with body")
	}
	return nil
}

// clientHelloMsg implements the client_hello message.
type clientHelloMsg struct {
	version            ProtocolVersion
	random             Random
	sessionID          []byte
	cipherSuites       []CipherSuite
	compressionMethods []CompressionMethod

	// Extensions.
	serverName          string
	supportedCurves     []CurveID
	supportedPoints     []uint8
	signatureAlgorithms []SignatureAndHash
	extraExtensions     []rawExtension
}

func (m *clientHelloMsg) typ() HandshakeType { return HTClientHello }

func (m *clientHelloMsg) hasExtensions() bool {
	return len(m.serverName) > 0 || len(m.supportedCurves) > 0 ||
		len(m.supportedPoints) > 0 || len(m.signatureAlgorithms) > 0 ||
		len(m.extraExtensions) > 0
}

func (m *clientHelloMsg) marshal() ([]byte, error) {
	var b cryptobyte.Builder

	b.AddUint16(uint16(m.version))
	addRandom(&b, &m.random)
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(m.sessionID)
	})
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, suite := range m.cipherSuites {
			b.AddUint16(uint16(suite))
		}
	})
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, cm := range m.compressionMethods {
			b.AddUint8(uint8(cm))
		}
	})
	if m.hasExtensions() {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			m.marshalExtensions(b)
		})
	}

	return b.Bytes()
}

func (m *clientHelloMsg) marshalExtensions(b *cryptobyte.Builder) {
	if len(m.serverName) > 0 {
		b.AddUint16(extServerName)
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddUint8(0) // host_name
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddBytes([]byte(m.serverName))
				})
			})
		})
	}
	if len(m.supportedCurves) > 0 {
		b.AddUint16(extSupportedGroups)
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				for _, curve := range m.supportedCurves {
					b.AddUint16(uint16(curve))
				}
			})
		})
	}
	if len(m.supportedPoints) > 0 {
		b.AddUint16(extECPointFormats)
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(m.supportedPoints)
			})
		})
	}
	if len(m.signatureAlgorithms) > 0 {
		b.AddUint16(extSignatureAlgorithms)
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				for _, sh := range m.signatureAlgorithms {
					b.AddUint8(sh.Hash)
					b.AddUint8(sh.Signature)
				}
			})
		})
	}
	for _, ext := range m.extraExtensions {
		b.AddUint16(ext.id)
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(ext.data)
		})
	}
}

func (m *clientHelloMsg) unmarshal(data []byte) error {
	s := cryptobyte.String(data)

	if !s.ReadUint16((*uint16)(&m.version)) || !readRandom(&s, &m.random) {
		return decodeErrorf("truncated client_hello")
	}
	var sessionID cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&sessionID) || len(sessionID) > 32 {
		return decodeErrorf("client_hello: invalid session_id")
	}
	m.sessionID = []byte(sessionID)

	var suites cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&suites) ||
		len(suites) < 2 || len(suites)%2 != 0 {
		return decodeErrorf("client_hello: invalid cipher_suites")
	}
	m.cipherSuites = nil
	for !suites.Empty() {
		var suite uint16
		suites.ReadUint16(&suite)
		m.cipherSuites = append(m.cipherSuites, CipherSuite(suite))
	}

	var compressions cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&compressions) || len(compressions) < 1 {
		return decodeErrorf("client_hello: invalid compression_methods")
	}
	m.compressionMethods = nil
	for !compressions.Empty() {
		var cm uint8
		compressions.ReadUint8(&cm)
		m.compressionMethods = append(m.compressionMethods,
			CompressionMethod(cm))
	}

	m.serverName = ""
	m.supportedCurves = nil
	m.supportedPoints = nil
	m.signatureAlgorithms = nil
	m.extraExtensions = nil

	if s.Empty() {
		return nil
	}
	var exts cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&exts) || !s.Empty() {
		return decodeErrorf("client_hello: invalid extensions")
	}
	return m.unmarshalExtensions(exts)
}

func (m *clientHelloMsg) unmarshalExtensions(exts cryptobyte.String) error {
	for !exts.Empty() {
		var id uint16
		var body cryptobyte.String
		if !exts.ReadUint16(&id) || !exts.ReadUint16LengthPrefixed(&body) {
			return decodeErrorf("client_hello: truncated extension")
		}
		switch id {
		case extServerName:
			var names cryptobyte.String
			if !body.ReadUint16LengthPrefixed(&names) || !body.Empty() {
				return decodeErrorf("server_name: invalid data")
			}
			for !names.Empty() {
				var nameType uint8
				var name cryptobyte.String
				if !names.ReadUint8(&nameType) ||
					!names.ReadUint16LengthPrefixed(&name) {
					return decodeErrorf("server_name: invalid entry")
				}
				if nameType == 0 {
					m.serverName = string(name)
				}
			}

		case extSupportedGroups:
			var curves cryptobyte.String
			if !body.ReadUint16LengthPrefixed(&curves) ||
				len(curves)%2 != 0 || !body.Empty() {
				return decodeErrorf("supported_groups: invalid data")
			}
			for !curves.Empty() {
				var curve uint16
				curves.ReadUint16(&curve)
				m.supportedCurves = append(m.supportedCurves, CurveID(curve))
			}

		case extECPointFormats:
			var formats cryptobyte.String
			if !body.ReadUint8LengthPrefixed(&formats) || !body.Empty() {
				return decodeErrorf("ec_point_formats: invalid data")
			}
			m.supportedPoints = []uint8(formats)

		case extSignatureAlgorithms:
			var algs cryptobyte.String
			if !body.ReadUint16LengthPrefixed(&algs) ||
				len(algs)%2 != 0 || !body.Empty() {
				return decodeErrorf("signature_algorithms: invalid data")
			}
			for !algs.Empty() {
				var h, sig uint8
				algs.ReadUint8(&h)
				algs.ReadUint8(&sig)
				m.signatureAlgorithms = append(m.signatureAlgorithms,
					SignatureAndHash{Hash: h, Signature: sig})
			}

		default:
			m.extraExtensions = append(m.extraExtensions, rawExtension{
				id:   id,
				data: []byte(body),
			})
		}
	}
	return nil
}

// serverHelloMsg implements the server_hello message.
type serverHelloMsg struct {
	version           ProtocolVersion
	random            Random
	sessionID         []byte
	cipherSuite       CipherSuite
	compressionMethod CompressionMethod
	extensions        []rawExtension
}

func (m *serverHelloMsg) typ() HandshakeType { return HTServerHello }

func (m *serverHelloMsg) marshal() ([]byte, error) {
	var b cryptobyte.Builder

	b.AddUint16(uint16(m.version))
	addRandom(&b, &m.random)
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(m.sessionID)
	})
	b.AddUint16(uint16(m.cipherSuite))
	b.AddUint8(uint8(m.compressionMethod))
	if len(m.extensions) > 0 {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, ext := range m.extensions {
				b.AddUint16(ext.id)
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddBytes(ext.data)
				})
			}
		})
	}

	return b.Bytes()
}

func (m *serverHelloMsg) unmarshal(data []byte) error {
	s := cryptobyte.String(data)

	if !s.ReadUint16((*uint16)(&m.version)) || !readRandom(&s, &m.random) {
		return decodeErrorf("truncated server_hello")
	}
	var sessionID cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&sessionID) || len(sessionID) > 32 {
		return decodeErrorf("server_hello: invalid session_id")
	}
	m.sessionID = []byte(sessionID)

	if !s.ReadUint16((*uint16)(&m.cipherSuite)) ||
		!s.ReadUint8((*uint8)(&m.compressionMethod)) {
		return decodeErrorf("truncated server_hello")
	}

	m.extensions = nil
	if s.Empty() {
		return nil
	}
	var exts cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&exts) || !s.Empty() {
		return decodeErrorf("server_hello: invalid extensions")
	}
	for !exts.Empty() {
		var id uint16
		var body cryptobyte.String
		if !exts.ReadUint16(&id) || !exts.ReadUint16LengthPrefixed(&body) {
			return decodeErrorf("server_hello: truncated extension")
		}
		m.extensions = append(m.extensions, rawExtension{
			id:   id,
			data: []byte(body),
		})
	}
	return nil
}

// certificateMsg implements the certificate message: a 24-bit framed
// sequence of 24-bit framed DER blobs.
type certificateMsg struct {
	certificates [][]byte
}

func (m *certificateMsg) typ() HandshakeType { return HTCertificate }

func (m *certificateMsg) marshal() ([]byte, error) {
	var b cryptobyte.Builder

	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, der := range m.certificates {
			b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(der)
			})
		}
	})

	return b.Bytes()
}

func (m *certificateMsg) unmarshal(data []byte) error {
	s := cryptobyte.String(data)

	var list cryptobyte.String
	if !s.ReadUint24LengthPrefixed(&list) || !s.Empty() {
		return decodeErrorf("invalid certificate list")
	}
	m.certificates = nil
	for !list.Empty() {
		var der cryptobyte.String
		if !list.ReadUint24LengthPrefixed(&der) {
			return decodeErrorf("truncated certificate entry")
		}
		m.certificates = append(m.certificates, []byte(der))
	}
	return nil
}

// serverKeyExchangeMsg carries the opaque server_key_exchange body.
// The key exchange implementation interprets the contents.
type serverKeyExchangeMsg struct {
	key []byte
}

func (m *serverKeyExchangeMsg) typ() HandshakeType { return HTServerKeyExchange }

func (m *serverKeyExchangeMsg) marshal() ([]byte, error) {
	return m.key, nil
}

func (m *serverKeyExchangeMsg) unmarshal(data []byte) error {
	m.key = data
	return nil
}

// certificateRequestMsg implements the certificate_request message.
// Since TLS 1.2 the body carries a signature_algorithms list between
// the certificate types and the authorities.
type certificateRequestMsg struct {
	hasSignatureAlgorithms bool

	certificateTypes    []ClientCertificateType
	signatureAlgorithms []SignatureAndHash
	authorities         [][]byte
}

func (m *certificateRequestMsg) typ() HandshakeType {
	return HTCertificateRequest
}

func (m *certificateRequestMsg) marshal() ([]byte, error) {
	var b cryptobyte.Builder

	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, t := range m.certificateTypes {
			b.AddUint8(uint8(t))
		}
	})
	if m.hasSignatureAlgorithms {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, sh := range m.signatureAlgorithms {
				b.AddUint8(sh.Hash)
				b.AddUint8(sh.Signature)
			}
		})
	}
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, ca := range m.authorities {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(ca)
			})
		}
	})

	return b.Bytes()
}

func (m *certificateRequestMsg) unmarshal(data []byte) error {
	s := cryptobyte.String(data)

	var types cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&types) || len(types) < 1 {
		return decodeErrorf("certificate_request: invalid types")
	}
	m.certificateTypes = nil
	for !types.Empty() {
		var t uint8
		types.ReadUint8(&t)
		m.certificateTypes = append(m.certificateTypes,
			ClientCertificateType(t))
	}

	m.signatureAlgorithms = nil
	if m.hasSignatureAlgorithms {
		var algs cryptobyte.String
		if !s.ReadUint16LengthPrefixed(&algs) ||
			len(algs) < 2 || len(algs)%2 != 0 {
			return decodeErrorf(
				"certificate_request: invalid signature_algorithms")
		}
		for !algs.Empty() {
			var h, sig uint8
			algs.ReadUint8(&h)
			algs.ReadUint8(&sig)
			m.signatureAlgorithms = append(m.signatureAlgorithms,
				SignatureAndHash{Hash: h, Signature: sig})
		}
	}

	var cas cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&cas) || !s.Empty() {
		return decodeErrorf("certificate_request: invalid authorities")
	}
	m.authorities = nil
	for !cas.Empty() {
		var ca cryptobyte.String
		if !cas.ReadUint16LengthPrefixed(&ca) || len(ca) < 1 {
			return decodeErrorf("certificate_request: invalid authority")
		}
		m.authorities = append(m.authorities, []byte(ca))
	}
	return nil
}

// serverHelloDoneMsg implements the empty server_hello_done message.
type serverHelloDoneMsg struct{}

func (m *serverHelloDoneMsg) typ() HandshakeType { return HTServerHelloDone }

func (m *serverHelloDoneMsg) marshal() ([]byte, error) { return nil, nil }

func (m *serverHelloDoneMsg) unmarshal(data []byte) error {
	if len(data) != 0 {
		return decodeErrorf("server_hello_done with body")
	}
	return nil
}

// clientKeyExchangeMsg carries the opaque client_key_exchange body.
type clientKeyExchangeMsg struct {
	exchange []byte
}

func (m *clientKeyExchangeMsg) typ() HandshakeType { return HTClientKeyExchange }

func (m *clientKeyExchangeMsg) marshal() ([]byte, error) {
	return m.exchange, nil
}

func (m *clientKeyExchangeMsg) unmarshal(data []byte) error {
	m.exchange = data
	return nil
}

// finishedMsg implements the finished message. The body is the
// verify_data whose length the suite defines.
type finishedMsg struct {
	verifyData []byte
}

func (m *finishedMsg) typ() HandshakeType { return HTFinished }

func (m *finishedMsg) marshal() ([]byte, error) {
	return m.verifyData, nil
}

func (m *finishedMsg) unmarshal(data []byte) error {
	m.verifyData = data
	return nil
}
