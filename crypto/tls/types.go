//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rc4"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// ContentType specifies record layer record types.
type ContentType uint8

// Record layer record types.
const (
	CTInvalid          ContentType = 0
	CTChangeCipherSpec ContentType = 20
	CTAlert            ContentType = 21
	CTHandshake        ContentType = 22
	CTApplicationData  ContentType = 23
)

func (ct ContentType) String() string {
	name, ok := contentTypes[ct]
	if ok {
		return name
	}
	return fmt.Sprintf("{ContentType %d}", ct)
}

var contentTypes = map[ContentType]string{
	CTInvalid:          "invalid",
	CTChangeCipherSpec: "change_cipher_spec",
	CTAlert:            "alert",
	CTHandshake:        "handshake",
	CTApplicationData:  "application_data",
}

// ProtocolVersion defines TLS protocol version.
type ProtocolVersion uint16

// Version numbers.
const (
	VersionSSL30 ProtocolVersion = 0x0300
	VersionTLS10 ProtocolVersion = 0x0301
	VersionTLS11 ProtocolVersion = 0x0302
	VersionTLS12 ProtocolVersion = 0x0303
)

func (v ProtocolVersion) String() string {
	name, ok := protocolVersions[v]
	if ok {
		return name
	}
	return fmt.Sprintf("%04x", uint(v))
}

var protocolVersions = map[ProtocolVersion]string{
	0x0300: "SSL 3.0",
	0x0301: "TLS 1.0",
	0x0302: "TLS 1.1",
	0x0303: "TLS 1.2",
}

// Record layer limits. A record body may expand by the compression
// and cipher overhead allowances on top of the plaintext cap.
const (
	recordHeaderLen     = 5
	maxPlaintextLength  = 1 << 14
	maxCompressedLength = maxPlaintextLength + 1024
	maxCiphertextLength = maxPlaintextLength + 2048
)

// HandshakeType defines handshake message types.
type HandshakeType uint8

// Handshake message types.
const (
	HTHelloRequest       HandshakeType = 0
	HTClientHello        HandshakeType = 1
	HTServerHello        HandshakeType = 2
	HTCertificate        HandshakeType = 11
	HTServerKeyExchange  HandshakeType = 12
	HTCertificateRequest HandshakeType = 13
	HTServerHelloDone    HandshakeType = 14
	HTCertificateVerify  HandshakeType = 15
	HTClientKeyExchange  HandshakeType = 16
	HTFinished           HandshakeType = 20
)

func (ht HandshakeType) String() string {
	name, ok := handshakeTypes[ht]
	if ok {
		return name
	}
	return fmt.Sprintf("{HandshakeType %d}", ht)
}

var handshakeTypes = map[HandshakeType]string{
	HTHelloRequest:       "hello_request",
	HTClientHello:        "client_hello",
	HTServerHello:        "server_hello",
	HTCertificate:        "certificate",
	HTServerKeyExchange:  "server_key_exchange",
	HTCertificateRequest: "certificate_request",
	HTServerHelloDone:    "server_hello_done",
	HTCertificateVerify:  "certificate_verify",
	HTClientKeyExchange:  "client_key_exchange",
	HTFinished:           "finished",
}

// CompressionMethod defines record layer compression methods.
type CompressionMethod uint8

// Compression methods.
const (
	CompressionNull    CompressionMethod = 0
	CompressionDeflate CompressionMethod = 1
)

func (cm CompressionMethod) String() string {
	switch cm {
	case CompressionNull:
		return "null"
	case CompressionDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("{CompressionMethod %d}", cm)
	}
}

// CurveID defines named elliptic curves for ECDHE key exchange.
type CurveID uint16

// Named curves.
const (
	CurveP256 CurveID = 23
	CurveP384 CurveID = 24
	CurveP521 CurveID = 25
	X25519    CurveID = 29
)

func (curve CurveID) String() string {
	name, ok := curveNames[curve]
	if ok {
		return name
	}
	return fmt.Sprintf("%04x", int(curve))
}

var curveNames = map[CurveID]string{
	CurveP256: "secp256r1",
	CurveP384: "secp384r1",
	CurveP521: "secp521r1",
	X25519:    "x25519",
}

// The only EC point format used by this implementation.
const pointFormatUncompressed uint8 = 0

// The ECCurveType value for a named curve in server_key_exchange.
const curveTypeNamedCurve uint8 = 3

// SignatureAndHash defines a signature_algorithms entry: a hash
// algorithm paired with a signature algorithm.
type SignatureAndHash struct {
	Hash      uint8
	Signature uint8
}

// Hash algorithm numbers.
const (
	HashMD5    uint8 = 1
	HashSHA1   uint8 = 2
	HashSHA256 uint8 = 4
	HashSHA384 uint8 = 5
)

// Signature algorithm numbers.
const (
	SignatureRSA   uint8 = 1
	SignatureDSA   uint8 = 2
	SignatureECDSA uint8 = 3
)

func (sh SignatureAndHash) String() string {
	return fmt.Sprintf("{hash=%d sign=%d}", sh.Hash, sh.Signature)
}

// ClientCertificateType defines certificate_request certificate
// types.
type ClientCertificateType uint8

// Certificate types.
const (
	CertTypeRSASign    ClientCertificateType = 1
	CertTypeDSSSign    ClientCertificateType = 2
	CertTypeRSAFixedDH ClientCertificateType = 3
	CertTypeDSSFixedDH ClientCertificateType = 4
)

// Extension numbers used by the hello messages.
const (
	extServerName          uint16 = 0
	extSupportedGroups     uint16 = 10
	extECPointFormats      uint16 = 11
	extSignatureAlgorithms uint16 = 13
)

// PRF labels.
const (
	labelMasterSecret   = "master secret"
	labelKeyExpansion   = "key expansion"
	labelClientFinished = "client finished"
	labelServerFinished = "server finished"
)

// CipherSuite defines cipher suites.
type CipherSuite uint16

// Supported cipher suites.
const (
	TLS_RSA_WITH_RC4_128_SHA              CipherSuite = 0x0005
	TLS_RSA_WITH_3DES_EDE_CBC_SHA         CipherSuite = 0x000a
	TLS_RSA_WITH_AES_128_CBC_SHA          CipherSuite = 0x002f
	TLS_RSA_WITH_AES_256_CBC_SHA          CipherSuite = 0x0035
	TLS_RSA_WITH_AES_128_CBC_SHA256       CipherSuite = 0x003c
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA    CipherSuite = 0xc013
	TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA    CipherSuite = 0xc014
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256 CipherSuite = 0xc027
)

func (cs CipherSuite) String() string {
	info := cipherSuites[cs]
	if info != nil {
		return info.name
	}
	return fmt.Sprintf("{CipherSuite 0x%02x,0x%02x}", int(cs>>8), int(cs&0xff))
}

// keyExchangeAlgorithm defines the suite's key exchange and
// authentication kind.
type keyExchangeAlgorithm int

const (
	kxRSA keyExchangeAlgorithm = iota
	kxECDHERSA
)

// cipherKind defines the bulk cipher construction.
type cipherKind int

const (
	cipherStream cipherKind = iota
	cipherBlock
)

// suiteInfo bundles the parameters derived from a cipher suite:
// key exchange kind, bulk cipher construction and lengths, MAC and
// PRF hashes, minimum protocol version, and Finished verify length.
type suiteInfo struct {
	id         CipherSuite
	name       string
	kx         keyExchangeAlgorithm
	kind       cipherKind
	keyLen     int
	blockLen   int
	macLen     int
	stream     func(key []byte) (cipher.Stream, error)
	block      func(key []byte) (cipher.Block, error)
	macHash    func() hash.Hash
	prfHash    func() hash.Hash
	minVersion ProtocolVersion
	verifyLen  int
}

// ivLen returns the fixed IV length of the key block. TLS 1.1 and
// later carry an explicit per-record IV instead, so the key block
// allocates none.
func (info *suiteInfo) ivLen(vers ProtocolVersion) int {
	if info.kind == cipherBlock && vers < VersionTLS11 {
		return info.blockLen
	}
	return 0
}

func newRC4(key []byte) (cipher.Stream, error) {
	return rc4.NewCipher(key)
}

func new3DES(key []byte) (cipher.Block, error) {
	return des.NewTripleDESCipher(key)
}

func newAES(key []byte) (cipher.Block, error) {
	return aes.NewCipher(key)
}

var cipherSuites = map[CipherSuite]*suiteInfo{
	TLS_RSA_WITH_RC4_128_SHA: {
		id:         TLS_RSA_WITH_RC4_128_SHA,
		name:       "TLS_RSA_WITH_RC4_128_SHA",
		kx:         kxRSA,
		kind:       cipherStream,
		keyLen:     16,
		macLen:     20,
		stream:     newRC4,
		macHash:    sha1.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS10,
		verifyLen:  12,
	},
	TLS_RSA_WITH_3DES_EDE_CBC_SHA: {
		id:         TLS_RSA_WITH_3DES_EDE_CBC_SHA,
		name:       "TLS_RSA_WITH_3DES_EDE_CBC_SHA",
		kx:         kxRSA,
		kind:       cipherBlock,
		keyLen:     24,
		blockLen:   8,
		macLen:     20,
		block:      new3DES,
		macHash:    sha1.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS10,
		verifyLen:  12,
	},
	TLS_RSA_WITH_AES_128_CBC_SHA: {
		id:         TLS_RSA_WITH_AES_128_CBC_SHA,
		name:       "TLS_RSA_WITH_AES_128_CBC_SHA",
		kx:         kxRSA,
		kind:       cipherBlock,
		keyLen:     16,
		blockLen:   16,
		macLen:     20,
		block:      newAES,
		macHash:    sha1.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS10,
		verifyLen:  12,
	},
	TLS_RSA_WITH_AES_256_CBC_SHA: {
		id:         TLS_RSA_WITH_AES_256_CBC_SHA,
		name:       "TLS_RSA_WITH_AES_256_CBC_SHA",
		kx:         kxRSA,
		kind:       cipherBlock,
		keyLen:     32,
		blockLen:   16,
		macLen:     20,
		block:      newAES,
		macHash:    sha1.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS10,
		verifyLen:  12,
	},
	TLS_RSA_WITH_AES_128_CBC_SHA256: {
		id:         TLS_RSA_WITH_AES_128_CBC_SHA256,
		name:       "TLS_RSA_WITH_AES_128_CBC_SHA256",
		kx:         kxRSA,
		kind:       cipherBlock,
		keyLen:     16,
		blockLen:   16,
		macLen:     32,
		block:      newAES,
		macHash:    sha256.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS12,
		verifyLen:  12,
	},
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA: {
		id:         TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
		name:       "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA",
		kx:         kxECDHERSA,
		kind:       cipherBlock,
		keyLen:     16,
		blockLen:   16,
		macLen:     20,
		block:      newAES,
		macHash:    sha1.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS10,
		verifyLen:  12,
	},
	TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA: {
		id:         TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
		name:       "TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA",
		kx:         kxECDHERSA,
		kind:       cipherBlock,
		keyLen:     32,
		blockLen:   16,
		macLen:     20,
		block:      newAES,
		macHash:    sha1.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS10,
		verifyLen:  12,
	},
	TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256: {
		id:         TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
		name:       "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256",
		kx:         kxECDHERSA,
		kind:       cipherBlock,
		keyLen:     16,
		blockLen:   16,
		macLen:     32,
		block:      newAES,
		macHash:    sha256.New,
		prfHash:    sha256.New,
		minVersion: VersionTLS12,
		verifyLen:  12,
	},
}

// suiteByID resolves a cipher suite number to its parameter bundle.
// It returns nil for unknown suites.
func suiteByID(id CipherSuite) *suiteInfo {
	return cipherSuites[id]
}

// SuiteByName resolves a cipher suite by its registry name.
func SuiteByName(name string) (CipherSuite, bool) {
	for id, info := range cipherSuites {
		if info.name == name {
			return id, true
		}
	}
	return 0, false
}

// DefaultCipherSuites returns the suites offered when the Config does
// not specify a list, in priority order.
func DefaultCipherSuites() []CipherSuite {
	return []CipherSuite{
		TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
		TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
		TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
		TLS_RSA_WITH_AES_128_CBC_SHA256,
		TLS_RSA_WITH_AES_256_CBC_SHA,
		TLS_RSA_WITH_AES_128_CBC_SHA,
		TLS_RSA_WITH_3DES_EDE_CBC_SHA,
		TLS_RSA_WITH_RC4_128_SHA,
	}
}

// Alert defines alert messages.
type Alert struct {
	Level       AlertLevel
	Description AlertDescription
}

func (a Alert) String() string {
	return fmt.Sprintf("%v: %v", a.Level, a.Description)
}

// AlertLevel defines alert severity.
type AlertLevel uint8

func (level AlertLevel) String() string {
	switch level {
	case AlertLevelWarning:
		return "warning"
	case AlertLevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("{AlertLevel %d}", int(level))
	}
}

// Alert Levels.
const (
	AlertLevelWarning AlertLevel = 1
	AlertLevelFatal   AlertLevel = 2
)

// AlertDescription describes the alert.
type AlertDescription uint8

// Level returns the alert description's severity.
func (desc AlertDescription) Level() AlertLevel {
	switch desc {
	case AlertCloseNotify, AlertUserCanceled:
		return AlertLevelWarning
	}
	return AlertLevelFatal
}

func (desc AlertDescription) String() string {
	name, ok := alertDescriptions[desc]
	if ok {
		return name
	}
	return fmt.Sprintf("{AlertDescription %d}", int(desc))
}

// Error implements error so that protocol failures carry the alert
// that describes them.
func (desc AlertDescription) Error() string {
	return desc.String()
}

// Alert descriptions.
const (
	AlertCloseNotify            AlertDescription = 0
	AlertUnexpectedMessage      AlertDescription = 10
	AlertBadRecordMAC           AlertDescription = 20
	AlertRecordOverflow         AlertDescription = 22
	AlertDecompressionFailure   AlertDescription = 30
	AlertHandshakeFailure       AlertDescription = 40
	AlertBadCertificate         AlertDescription = 42
	AlertUnsupportedCertificate AlertDescription = 43
	AlertCertificateRevoked     AlertDescription = 44
	AlertCertificateExpired     AlertDescription = 45
	AlertCertificateUnknown     AlertDescription = 46
	AlertIllegalParameter       AlertDescription = 47
	AlertUnknownCA              AlertDescription = 48
	AlertAccessDenied           AlertDescription = 49
	AlertDecodeError            AlertDescription = 50
	AlertDecryptError           AlertDescription = 51
	AlertProtocolVersion        AlertDescription = 70
	AlertInsufficientSecurity   AlertDescription = 71
	AlertInternalError          AlertDescription = 80
	AlertUserCanceled           AlertDescription = 90
)

var alertDescriptions = map[AlertDescription]string{
	AlertCloseNotify:            "close_notify",
	AlertUnexpectedMessage:      "unexpected_message",
	AlertBadRecordMAC:           "bad_record_mac",
	AlertRecordOverflow:         "record_overflow",
	AlertDecompressionFailure:   "decompression_failure",
	AlertHandshakeFailure:       "handshake_failure",
	AlertBadCertificate:         "bad_certificate",
	AlertUnsupportedCertificate: "unsupported_certificate",
	AlertCertificateRevoked:     "certificate_revoked",
	AlertCertificateExpired:     "certificate_expired",
	AlertCertificateUnknown:     "certificate_unknown",
	AlertIllegalParameter:       "illegal_parameter",
	AlertUnknownCA:              "unknown_ca",
	AlertAccessDenied:           "access_denied",
	AlertDecodeError:            "decode_error",
	AlertDecryptError:           "decrypt_error",
	AlertProtocolVersion:        "protocol_version",
	AlertInsufficientSecurity:   "insufficient_security",
	AlertInternalError:          "internal_error",
	AlertUserCanceled:           "user_canceled",
}
