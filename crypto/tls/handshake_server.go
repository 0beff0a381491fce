//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"github.com/pkg/errors"
)

// serverStep dispatches one handshake frame against the server-side
// acceptance grammar.
func (c *Conn) serverStep(fr *Frame) (stepResult, error) {
	switch c.wait {
	case waitHello:
		return c.serverHello(fr)

	case waitKeyExchange, waitECDHEKeyExchange:
		return c.serverKeyExchange(fr)

	case waitCertVerify:
		return c.serverCertVerify(fr)

	case waitFinished:
		return c.serverFinished(fr)

	default:
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"%v in state %v", fr.Handshake, c.wait)
	}
}

func (c *Conn) serverHello(fr *Frame) (stepResult, error) {
	m, ok := fr.Message.(*clientHelloMsg)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected client_hello, got %v", fr.Handshake)
	}

	c.offeredVersion = m.version
	vers := m.version
	if vers > c.config.maxVersion() {
		vers = c.config.maxVersion()
	}
	if vers < c.config.minVersion() {
		return stepAccept, errors.Wrapf(AlertProtocolVersion,
			"client offered %v", m.version)
	}

	suite := c.selectSuite(m.cipherSuites, vers)
	if suite == nil {
		return stepAccept, errors.Wrap(AlertHandshakeFailure,
			"no mutual cipher suite")
	}
	compression, ok := c.selectCompression(m.compressionMethods)
	if !ok {
		return stepAccept, errors.Wrap(AlertHandshakeFailure,
			"no mutual compression method")
	}

	c.setVersion(vers)
	c.suite = suite
	c.compression = compression
	c.ka = newKeyAgreement(suite)

	c.pending.load(suite, vers, compression)
	c.pending.clientRandom = m.random.bytes()

	if m.serverName != "" {
		c.log.Debug().Str("server_name", m.serverName).Msg("client hello")
	}

	random, err := c.framer.NewRandom()
	if err != nil {
		return stepAccept, err
	}
	hello := &serverHelloMsg{
		version:           vers,
		random:            random,
		cipherSuite:       suite.id,
		compressionMethod: compression,
	}
	if err := c.framer.WriteHandshake(hello); err != nil {
		return stepAccept, err
	}

	if len(c.config.Certificates) == 0 {
		return stepAccept, errors.Wrap(AlertInternalError,
			"no server certificate configured")
	}
	err = c.framer.WriteHandshake(&certificateMsg{
		certificates: c.config.Certificates,
	})
	if err != nil {
		return stepAccept, err
	}

	if suite.kx == kxECDHERSA {
		skx, err := c.ka.generateServerKeyExchange(c, m)
		if err != nil {
			return stepAccept, err
		}
		if err := c.framer.WriteHandshake(skx); err != nil {
			return stepAccept, err
		}
		c.setWait(waitECDHEKeyExchange)
	} else {
		c.setWait(waitKeyExchange)
	}

	if err := c.framer.WriteHandshake(new(serverHelloDoneMsg)); err != nil {
		return stepAccept, err
	}
	return stepAccept, nil
}

func (c *Conn) serverKeyExchange(fr *Frame) (stepResult, error) {
	m, ok := fr.Message.(*clientKeyExchangeMsg)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected client_key_exchange, got %v", fr.Handshake)
	}
	preMaster, err := c.ka.processClientKeyExchange(c, m)
	if err != nil {
		return stepAccept, err
	}
	c.pending.preMaster = preMaster
	c.setWait(waitCertVerify)
	return stepAccept, nil
}

func (c *Conn) serverCertVerify(fr *Frame) (stepResult, error) {
	if fr.Handshake == HTCertificateVerify {
		// Legal only after a certificate request, which this
		// implementation never sends.
		return stepAccept, errors.Wrap(AlertUnexpectedMessage,
			"certificate_verify without certificate request")
	}
	c.setWait(waitFinished)
	return stepSkip, nil
}

func (c *Conn) serverFinished(fr *Frame) (stepResult, error) {
	m, ok := fr.Message.(*finishedMsg)
	if !ok {
		return stepAccept, errors.Wrapf(AlertUnexpectedMessage,
			"expected finished, got %v", fr.Handshake)
	}
	if c.read == c.write {
		return stepAccept, errors.Wrap(AlertUnexpectedMessage,
			"finished before change_cipher_spec")
	}
	if !c.verifyPeerFinished(m) {
		// A deferred key exchange failure surfaces here so that the
		// earlier premaster check leaks nothing through timing.
		if c.deferredErr != nil {
			return stepAccept, c.deferredErr
		}
		return stepAccept, errors.Wrap(AlertDecryptError,
			"finished verification failed")
	}
	if c.deferredErr != nil {
		return stepAccept, c.deferredErr
	}

	if err := c.changeCipherAndFinish(); err != nil {
		return stepAccept, err
	}
	c.finishHandshake()
	return stepAccept, nil
}
