//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto"
	"crypto/ecdh"
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/curve25519"
)

// keyAgreement drives the suite's key exchange. The server side uses
// generateServerKeyExchange and processClientKeyExchange; the client
// side uses processServerKeyExchange and generateClientKeyExchange.
// processClientKeyExchange and generateClientKeyExchange yield the
// premaster secret.
type keyAgreement interface {
	generateServerKeyExchange(c *Conn, hello *clientHelloMsg) (
		*serverKeyExchangeMsg, error)
	processClientKeyExchange(c *Conn, ckx *clientKeyExchangeMsg) (
		[]byte, error)
	processServerKeyExchange(c *Conn, skx *serverKeyExchangeMsg) error
	generateClientKeyExchange(c *Conn) ([]byte, *clientKeyExchangeMsg, error)
}

func newKeyAgreement(suite *suiteInfo) keyAgreement {
	switch suite.kx {
	case kxECDHERSA:
		return new(ecdheKeyAgreement)
	default:
		return new(rsaKeyAgreement)
	}
}

// rsaKeyAgreement implements the plain RSA key exchange: the client
// encrypts the premaster secret under the server's public key.
type rsaKeyAgreement struct{}

func (ka *rsaKeyAgreement) generateServerKeyExchange(c *Conn,
	hello *clientHelloMsg) (*serverKeyExchangeMsg, error) {

	return nil, nil
}

func (ka *rsaKeyAgreement) processClientKeyExchange(c *Conn,
	ckx *clientKeyExchangeMsg) ([]byte, error) {

	if c.config.PrivateKey == nil {
		return nil, errors.Wrap(AlertInternalError, "no server private key")
	}

	s := cryptobyte.String(ckx.exchange)
	var ciphertext cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&ciphertext) || !s.Empty() {
		return nil, errors.Wrap(AlertDecodeError,
			"invalid client_key_exchange")
	}

	preMaster := make([]byte, masterSecretLength)
	if _, err := io.ReadFull(c.config.rand(), preMaster); err != nil {
		return nil, errors.Wrap(AlertInternalError, err.Error())
	}

	// RFC 5246 7.4.7.1: decryption and version check failures must
	// not be distinguishable from a handshake that continues, so the
	// random premaster stands in and the failure surfaces only after
	// Finished verification.
	err := rsa.DecryptPKCS1v15SessionKey(c.config.rand(),
		c.config.PrivateKey, ciphertext, preMaster)
	versOK := subtle.ConstantTimeByteEq(preMaster[0],
		byte(c.offeredVersion>>8)) &
		subtle.ConstantTimeByteEq(preMaster[1], byte(c.offeredVersion))
	if err != nil || versOK != 1 {
		if _, rerr := io.ReadFull(c.config.rand(), preMaster); rerr != nil {
			return nil, errors.Wrap(AlertInternalError, rerr.Error())
		}
		c.deferredErr = errors.Wrap(AlertProtocolVersion,
			"premaster secret version mismatch")
	}
	return preMaster, nil
}

func (ka *rsaKeyAgreement) processServerKeyExchange(c *Conn,
	skx *serverKeyExchangeMsg) error {

	return errors.Wrap(AlertUnexpectedMessage,
		"server_key_exchange with RSA key exchange")
}

func (ka *rsaKeyAgreement) generateClientKeyExchange(c *Conn) (
	[]byte, *clientKeyExchangeMsg, error) {

	preMaster := make([]byte, masterSecretLength)
	preMaster[0] = byte(c.offeredVersion >> 8)
	preMaster[1] = byte(c.offeredVersion)
	if _, err := io.ReadFull(c.config.rand(), preMaster[2:]); err != nil {
		return nil, nil, errors.Wrap(AlertInternalError, err.Error())
	}

	encrypted, err := rsa.EncryptPKCS1v15(c.config.rand(), c.peerKey,
		preMaster)
	if err != nil {
		return nil, nil, errors.Wrap(AlertInternalError, err.Error())
	}

	var b cryptobyte.Builder
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(encrypted)
	})
	exchange, err := b.Bytes()
	if err != nil {
		return nil, nil, errors.Wrap(AlertInternalError, err.Error())
	}
	return preMaster, &clientKeyExchangeMsg{exchange: exchange}, nil
}

// ecdheKeyAgreement implements the ephemeral elliptic curve key
// exchange with an RSA-signed parameter block.
type ecdheKeyAgreement struct {
	curveID CurveID

	key        *ecdh.PrivateKey
	x25519Priv []byte

	peerPub []byte
}

func ecdhCurve(id CurveID) ecdh.Curve {
	switch id {
	case CurveP256:
		return ecdh.P256()
	case CurveP384:
		return ecdh.P384()
	case CurveP521:
		return ecdh.P521()
	default:
		return nil
	}
}

func defaultCurves() []CurveID {
	return []CurveID{CurveP256, X25519, CurveP384}
}

// generateKey creates the ephemeral keypair and returns the public
// point encoding.
func (ka *ecdheKeyAgreement) generateKey(rnd io.Reader) ([]byte, error) {
	if ka.curveID == X25519 {
		priv := make([]byte, curve25519.ScalarSize)
		if _, err := io.ReadFull(rnd, priv); err != nil {
			return nil, errors.Wrap(AlertInternalError, err.Error())
		}
		pub, err := curve25519.X25519(priv, curve25519.Basepoint)
		if err != nil {
			return nil, errors.Wrap(AlertInternalError, err.Error())
		}
		ka.x25519Priv = priv
		return pub, nil
	}

	curve := ecdhCurve(ka.curveID)
	if curve == nil {
		return nil, errors.Wrapf(AlertInternalError,
			"unsupported curve %v", ka.curveID)
	}
	key, err := curve.GenerateKey(rnd)
	if err != nil {
		return nil, errors.Wrap(AlertInternalError, err.Error())
	}
	ka.key = key
	return key.PublicKey().Bytes(), nil
}

// sharedSecret derives the ECDHE shared secret with the peer's point.
func (ka *ecdheKeyAgreement) sharedSecret(peerPub []byte) ([]byte, error) {
	if ka.curveID == X25519 {
		shared, err := curve25519.X25519(ka.x25519Priv, peerPub)
		if err != nil {
			return nil, errors.Wrap(AlertIllegalParameter, err.Error())
		}
		return shared, nil
	}

	curve := ecdhCurve(ka.curveID)
	pub, err := curve.NewPublicKey(peerPub)
	if err != nil {
		return nil, errors.Wrap(AlertIllegalParameter,
			"invalid peer public point")
	}
	shared, err := ka.key.ECDH(pub)
	if err != nil {
		return nil, errors.Wrap(AlertIllegalParameter, err.Error())
	}
	return shared, nil
}

func (ka *ecdheKeyAgreement) generateServerKeyExchange(c *Conn,
	hello *clientHelloMsg) (*serverKeyExchangeMsg, error) {

	ka.curveID = 0
	preferred := c.config.curves()
	if len(hello.supportedCurves) == 0 {
		// No supported_groups offered; assume the first preference.
		ka.curveID = preferred[0]
	} else {
		for _, own := range preferred {
			for _, offered := range hello.supportedCurves {
				if own == offered {
					ka.curveID = own
					break
				}
			}
			if ka.curveID != 0 {
				break
			}
		}
	}
	if ka.curveID == 0 {
		return nil, errors.Wrap(AlertHandshakeFailure, "no mutual curve")
	}

	pub, err := ka.generateKey(c.config.rand())
	if err != nil {
		return nil, err
	}

	var pb cryptobyte.Builder
	pb.AddUint8(curveTypeNamedCurve)
	pb.AddUint16(uint16(ka.curveID))
	pb.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(pub)
	})
	params, err := pb.Bytes()
	if err != nil {
		return nil, errors.Wrap(AlertInternalError, err.Error())
	}

	sig, err := signServerParams(c, params)
	if err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	b.AddBytes(params)
	if c.vers >= VersionTLS12 {
		b.AddUint8(HashSHA256)
		b.AddUint8(SignatureRSA)
	}
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(sig)
	})
	key, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(AlertInternalError, err.Error())
	}
	return &serverKeyExchangeMsg{key: key}, nil
}

// signServerParams signs clientRandom || serverRandom || params with
// the server's RSA key.
func signServerParams(c *Conn, params []byte) ([]byte, error) {
	if c.config.PrivateKey == nil {
		return nil, errors.Wrap(AlertInternalError, "no server private key")
	}

	input := make([]byte, 0, 64+len(params))
	input = append(input, c.pending.clientRandom...)
	input = append(input, c.pending.serverRandom...)
	input = append(input, params...)

	if c.vers >= VersionTLS12 {
		digest := sha256.Sum256(input)
		sig, err := rsa.SignPKCS1v15(c.config.rand(), c.config.PrivateKey,
			crypto.SHA256, digest[:])
		if err != nil {
			return nil, errors.Wrap(AlertInternalError, err.Error())
		}
		return sig, nil
	}

	sig, err := rsa.SignPKCS1v15(c.config.rand(), c.config.PrivateKey,
		crypto.MD5SHA1, md5SHA1Hash(input))
	if err != nil {
		return nil, errors.Wrap(AlertInternalError, err.Error())
	}
	return sig, nil
}

func md5SHA1Hash(data []byte) []byte {
	digestMD5 := md5.Sum(data)
	digestSHA1 := sha1.Sum(data)
	return append(digestMD5[:], digestSHA1[:]...)
}

func (ka *ecdheKeyAgreement) processServerKeyExchange(c *Conn,
	skx *serverKeyExchangeMsg) error {

	s := cryptobyte.String(skx.key)
	var curveType uint8
	var curveID uint16
	var point cryptobyte.String
	if !s.ReadUint8(&curveType) || !s.ReadUint16(&curveID) ||
		!s.ReadUint8LengthPrefixed(&point) {
		return errors.Wrap(AlertDecodeError, "invalid server_key_exchange")
	}
	if curveType != curveTypeNamedCurve {
		return errors.Wrapf(AlertIllegalParameter,
			"unsupported curve type %d", curveType)
	}
	params := skx.key[:len(skx.key)-len(s)]

	input := make([]byte, 0, 64+len(params))
	input = append(input, c.pending.clientRandom...)
	input = append(input, c.pending.serverRandom...)
	input = append(input, params...)

	var hashAlg uint8 = HashSHA1
	if c.vers >= VersionTLS12 {
		var sigAlg uint8
		if !s.ReadUint8(&hashAlg) || !s.ReadUint8(&sigAlg) {
			return errors.Wrap(AlertDecodeError,
				"invalid server_key_exchange signature")
		}
		if sigAlg != SignatureRSA {
			return errors.Wrapf(AlertIllegalParameter,
				"unsupported signature algorithm %d", sigAlg)
		}
	}
	var sig cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&sig) || !s.Empty() {
		return errors.Wrap(AlertDecodeError,
			"invalid server_key_exchange signature")
	}

	var err error
	if c.vers >= VersionTLS12 {
		switch hashAlg {
		case HashSHA256:
			digest := sha256.Sum256(input)
			err = rsa.VerifyPKCS1v15(c.peerKey, crypto.SHA256, digest[:],
				sig)
		case HashSHA1:
			digest := sha1.Sum(input)
			err = rsa.VerifyPKCS1v15(c.peerKey, crypto.SHA1, digest[:], sig)
		default:
			return errors.Wrapf(AlertIllegalParameter,
				"unsupported hash algorithm %d", hashAlg)
		}
	} else {
		err = rsa.VerifyPKCS1v15(c.peerKey, crypto.MD5SHA1,
			md5SHA1Hash(input), sig)
	}
	if err != nil {
		return errors.Wrap(AlertDecryptError,
			"server_key_exchange signature verification failed")
	}

	ka.curveID = CurveID(curveID)
	ka.peerPub = []byte(point)
	return nil
}

func (ka *ecdheKeyAgreement) generateClientKeyExchange(c *Conn) (
	[]byte, *clientKeyExchangeMsg, error) {

	if len(ka.peerPub) == 0 {
		return nil, nil, errors.Wrap(AlertUnexpectedMessage,
			"missing server_key_exchange")
	}

	pub, err := ka.generateKey(c.config.rand())
	if err != nil {
		return nil, nil, err
	}
	preMaster, err := ka.sharedSecret(ka.peerPub)
	if err != nil {
		return nil, nil, err
	}

	var b cryptobyte.Builder
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(pub)
	})
	exchange, err := b.Bytes()
	if err != nil {
		return nil, nil, errors.Wrap(AlertInternalError, err.Error())
	}
	return preMaster, &clientKeyExchangeMsg{exchange: exchange}, nil
}

func (ka *ecdheKeyAgreement) processClientKeyExchange(c *Conn,
	ckx *clientKeyExchangeMsg) ([]byte, error) {

	s := cryptobyte.String(ckx.exchange)
	var point cryptobyte.String
	if !s.ReadUint8LengthPrefixed(&point) || !s.Empty() {
		return nil, errors.Wrap(AlertDecodeError,
			"invalid client_key_exchange")
	}
	return ka.sharedSecret([]byte(point))
}
