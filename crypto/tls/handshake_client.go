//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/rsa"

	"github.com/pkg/errors"
)

// supportedSignatureAlgorithms lists the signature_algorithms the
// client advertises for TLS 1.2.
func supportedSignatureAlgorithms() []SignatureAndHash {
	return []SignatureAndHash{
		{Hash: HashSHA256, Signature: SignatureRSA},
		{Hash: HashSHA1, Signature: SignatureRSA},
	}
}

// sendClientHello assembles and emits the client_hello opening the
// handshake.
func (c *Conn) sendClientHello() error {
	random, err := c.framer.NewRandom()
	if err != nil {
		return err
	}

	hello := &clientHelloMsg{
		version:            c.config.maxVersion(),
		random:             random,
		cipherSuites:       c.config.suites(),
		compressionMethods: c.config.compressions(),
		serverName:         c.config.ServerName,
		supportedCurves:    c.config.curves(),
		supportedPoints:    []uint8{pointFormatUncompressed},
	}
	if hello.version >= VersionTLS12 {
		hello.signatureAlgorithms = supportedSignatureAlgorithms()
	}
	c.offeredVersion = hello.version

	return c.framer.WriteHandshake(hello)
}

// clientStep dispatches one handshake frame against the client-side
// acceptance grammar.
func (c *Conn) clientStep(fr *Frame) (stepResult, error) {
	switch c.wait {
	case waitHello:
		return c.clientHello(fr)

	case waitCertificate, waitOptCertificate:
		return c.clientCertificate(fr)

	case waitECDHEKeyExchange:
		return c.clientKeyExchange(fr)

	case waitCertReq:
		return c.clientCertRequest(fr)

	case waitHelloDone:
		return c.clientHelloDone(fr)

	case waitFinished:
		return c.clientFinished(fr)

	default:
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"%v in state %v", fr.Handshake, c.wait)
	}
}

func (c *Conn) clientHello(fr *Frame) (stepResult, error) {
	m, ok := fr.Message.(*serverHelloMsg)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected server_hello, got %v", fr.Handshake)
	}

	if m.version < c.config.minVersion() || m.version > c.config.maxVersion() {
		return stepAccept, errors.Wrapf(AlertProtocolVersion,
			"server selected %v", m.version)
	}

	suite := suiteByID(m.cipherSuite)
	var offered bool
	for _, id := range c.config.suites() {
		if id == m.cipherSuite {
			offered = true
			break
		}
	}
	if suite == nil || !offered || suite.minVersion > m.version {
		return stepAccept, errors.Wrapf(AlertHandshakeFailure,
			"server selected unsupported suite %v", m.cipherSuite)
	}

	var compressionOK bool
	for _, cm := range c.config.compressions() {
		if cm == m.compressionMethod {
			compressionOK = true
			break
		}
	}
	if !compressionOK {
		return stepAccept, errors.Wrapf(AlertIllegalParameter,
			"server selected compression %v", m.compressionMethod)
	}

	c.setVersion(m.version)
	c.suite = suite
	c.compression = m.compressionMethod
	c.ka = newKeyAgreement(suite)

	c.pending.load(suite, m.version, m.compressionMethod)
	c.pending.serverRandom = m.random.bytes()

	c.setWait(waitCertificate)
	return stepAccept, nil
}

func (c *Conn) clientCertificate(fr *Frame) (stepResult, error) {
	next := waitCertReq
	if c.suite.kx == kxECDHERSA {
		next = waitECDHEKeyExchange
	}

	m, ok := fr.Message.(*certificateMsg)
	if !ok {
		if c.wait == waitOptCertificate {
			c.setWait(next)
			return stepSkip, nil
		}
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected certificate, got %v", fr.Handshake)
	}

	leaf, err := leafCertificate(m.certificates)
	if err != nil {
		return stepAccept, err
	}
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnsupportedCertificate,
			"certificate key is %T, expected RSA", leaf.PublicKey)
	}
	c.peerCert = leaf
	c.peerChain = m.certificates
	c.peerKey = pub
	if c.OnCert != nil {
		c.OnCert(leaf, m.certificates)
	}

	c.setWait(next)
	return stepAccept, nil
}

func (c *Conn) clientKeyExchange(fr *Frame) (stepResult, error) {
	m, ok := fr.Message.(*serverKeyExchangeMsg)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected server_key_exchange, got %v", fr.Handshake)
	}
	if err := c.ka.processServerKeyExchange(c, m); err != nil {
		return stepAccept, err
	}
	c.setWait(waitCertReq)
	return stepAccept, nil
}

func (c *Conn) clientCertRequest(fr *Frame) (stepResult, error) {
	if _, ok := fr.Message.(*certificateRequestMsg); !ok {
		c.setWait(waitHelloDone)
		return stepSkip, nil
	}
	// Client certificates are not supported; an empty certificate
	// list answers the request.
	c.certRequested = true
	c.setWait(waitHelloDone)
	return stepAccept, nil
}

func (c *Conn) clientHelloDone(fr *Frame) (stepResult, error) {
	if _, ok := fr.Message.(*serverHelloDoneMsg); !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected server_hello_done, got %v", fr.Handshake)
	}

	if c.certRequested {
		err := c.framer.WriteHandshake(new(certificateMsg))
		if err != nil {
			return stepAccept, err
		}
	}

	preMaster, ckx, err := c.ka.generateClientKeyExchange(c)
	if err != nil {
		return stepAccept, err
	}
	c.pending.preMaster = preMaster
	if err := c.framer.WriteHandshake(ckx); err != nil {
		return stepAccept, err
	}

	if err := c.changeCipherAndFinish(); err != nil {
		return stepAccept, err
	}
	c.setWait(waitFinished)
	return stepAccept, nil
}

func (c *Conn) clientFinished(fr *Frame) (stepResult, error) {
	m, ok := fr.Message.(*finishedMsg)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected finished, got %v", fr.Handshake)
	}
	if c.read != c.write {
		return stepAccept, errors.Wrap(AlertUnexpectedMessage,
			"finished before change_cipher_spec")
	}
	if !c.verifyPeerFinished(m) {
		return stepAccept, errors.Wrap(AlertDecryptError,
			"finished verification failed")
	}
	c.finishHandshake()
	return stepAccept, nil
}
