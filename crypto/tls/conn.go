//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"fmt"
	"io"
	"net"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config carries the endpoint configuration shared by both roles.
type Config struct {
	// MinVersion and MaxVersion bound the negotiable protocol
	// versions. The defaults are TLS 1.0 and TLS 1.2.
	MinVersion ProtocolVersion
	MaxVersion ProtocolVersion

	// CipherSuites lists the offered suites in priority order.
	CipherSuites []CipherSuite

	// CompressionMethods lists the offered record compression
	// methods. The default is null only.
	CompressionMethods []CompressionMethod

	// Curves lists the ECDHE curves in preference order.
	Curves []CurveID

	// Certificates is the certificate chain in DER, leaf first.
	Certificates [][]byte

	// PrivateKey is the RSA key matching the leaf certificate.
	PrivateKey *rsa.PrivateKey

	// ServerName is sent in the client hello server_name extension.
	ServerName string

	// Rand is the randomness source, crypto/rand by default.
	Rand io.Reader

	// Clock stamps hello randoms; the wall clock by default.
	Clock clock.Clock

	// Logger receives debug output when set.
	Logger *zerolog.Logger
}

func (config *Config) minVersion() ProtocolVersion {
	if config.MinVersion != 0 {
		return config.MinVersion
	}
	return VersionTLS10
}

func (config *Config) maxVersion() ProtocolVersion {
	if config.MaxVersion != 0 {
		return config.MaxVersion
	}
	return VersionTLS12
}

func (config *Config) suites() []CipherSuite {
	if len(config.CipherSuites) > 0 {
		return config.CipherSuites
	}
	return DefaultCipherSuites()
}

func (config *Config) compressions() []CompressionMethod {
	if len(config.CompressionMethods) > 0 {
		return config.CompressionMethods
	}
	return []CompressionMethod{CompressionNull}
}

func (config *Config) curves() []CurveID {
	if len(config.Curves) > 0 {
		return config.Curves
	}
	return defaultCurves()
}

func (config *Config) rand() io.Reader {
	if config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

func (config *Config) clk() clock.Clock {
	if config.Clock != nil {
		return config.Clock
	}
	return clock.New()
}

func (config *Config) logger() zerolog.Logger {
	if config.Logger != nil {
		return *config.Logger
	}
	return zerolog.Nop()
}

// waitState names the handshake message the state machine accepts
// next.
type waitState int

// Wait states.
const (
	waitHello waitState = iota
	waitCertificate
	waitOptCertificate
	waitECDHEKeyExchange
	waitKeyExchange
	waitCertReq
	waitHelloDone
	waitFinished
	waitCertVerify
	waitNone
)

func (w waitState) String() string {
	name, ok := waitStates[w]
	if ok {
		return name
	}
	return fmt.Sprintf("{waitState %d}", int(w))
}

var waitStates = map[waitState]string{
	waitHello:            "hello",
	waitCertificate:      "certificate",
	waitOptCertificate:   "optCertificate",
	waitECDHEKeyExchange: "ecdheKeyExchange",
	waitKeyExchange:      "keyExchange",
	waitCertReq:          "certReq",
	waitHelloDone:        "helloDone",
	waitFinished:         "finished",
	waitCertVerify:       "certVerify",
	waitNone:             "none",
}

// stepResult is the per-state handler verdict. A skipped optional
// message advances the wait state and re-dispatches the same frame.
type stepResult int

const (
	stepAccept stepResult = iota
	stepSkip
)

// Conn implements a TLS 1.0-1.2 connection in either role. The
// parser, framer, and session triangle form one logical actor driven
// by inbound frames and outbound write calls.
type Conn struct {
	conn     net.Conn
	config   *Config
	isClient bool

	parser *Parser
	framer *Framer

	// The session triangle. read and write are the active epochs per
	// direction; pending is the epoch under negotiation. Writing out
	// or reading in a change_cipher_spec reassigns the matching side
	// to pending; when both sides alias pending, the transcript is
	// cleared and a fresh pending is allocated.
	read    *Session
	write   *Session
	pending *Session

	vers           ProtocolVersion
	offeredVersion ProtocolVersion
	suite          *suiteInfo
	compression    CompressionMethod
	ka             keyAgreement

	wait        waitState
	started     bool
	secure      bool
	err         error
	deferredErr error
	peerClosed  bool

	peerKey       *rsa.PublicKey
	peerCert      *x509.Certificate
	peerChain     [][]byte
	certRequested bool

	appData []byte

	log zerolog.Logger

	// OnCert fires when the peer certificate becomes available.
	OnCert func(leaf *x509.Certificate, chain [][]byte)
	// OnStateChange fires on every wait state transition.
	OnStateChange func(from, to waitState)
	// OnSecure fires once on handshake completion.
	OnSecure func()
}

// Client creates a client-side connection over conn.
func Client(conn net.Conn, config *Config) *Conn {
	return newConn(conn, config, true)
}

// Server creates a server-side connection over conn.
func Server(conn net.Conn, config *Config) *Conn {
	return newConn(conn, config, false)
}

func newConn(conn net.Conn, config *Config, isClient bool) *Conn {
	if config == nil {
		config = new(Config)
	}
	null := newSession()

	c := &Conn{
		conn:     conn,
		config:   config,
		isClient: isClient,
		read:     null,
		write:    null,
		pending:  newPendingSession(),
		wait:     waitHello,
		log:      config.logger(),
	}
	c.parser = NewParser(conn, null)
	c.framer = NewFramer(conn, null, config.rand(), config.clk())
	c.framer.OnRandom = c.recordRandom
	c.framer.OnHandshake = c.recordHandshake

	return c
}

// recordRandom stores the hello random the framer generated into the
// pending session under this endpoint's role.
func (c *Conn) recordRandom(random []byte) {
	if c.isClient {
		c.pending.clientRandom = random
	} else {
		c.pending.serverRandom = random
	}
}

// recordHandshake appends an outbound handshake message to the
// pending transcript. hello_request never participates.
func (c *Conn) recordHandshake(raw []byte) {
	if len(raw) > 0 && HandshakeType(raw[0]) == HTHelloRequest {
		return
	}
	c.pending.addHandshakeMessage(raw)
}

// Secure reports whether the handshake has completed.
func (c *Conn) Secure() bool {
	return c.secure
}

// Version returns the negotiated protocol version, zero before the
// hellos.
func (c *Conn) Version() ProtocolVersion {
	return c.vers
}

// PeerCertificate returns the peer's leaf certificate, nil before it
// arrives.
func (c *Conn) PeerCertificate() *x509.Certificate {
	return c.peerCert
}

// setVersion pins the negotiated version on the connection, the
// parser's record version gate, and the framer's header stamp.
func (c *Conn) setVersion(vers ProtocolVersion) {
	c.vers = vers
	c.parser.version = vers
	c.framer.version = vers
}

func (c *Conn) setWait(to waitState) {
	from := c.wait
	c.wait = to
	if c.OnStateChange != nil && from != to {
		c.OnStateChange(from, to)
	}
}

// start sends the client hello; it is a no-op for servers.
func (c *Conn) start() error {
	if c.started {
		return nil
	}
	c.started = true
	if !c.isClient {
		return nil
	}
	return c.sendClientHello()
}

// Handshake runs the handshake to completion. It is a no-op if the
// connection is already secure.
func (c *Conn) Handshake() error {
	if c.err != nil {
		return c.err
	}
	if c.secure {
		return nil
	}
	if err := c.start(); err != nil {
		return c.fatal(err)
	}
	for !c.secure {
		fr, err := c.parser.Next()
		if err != nil {
			return c.fatal(err)
		}
		if err := c.handleFrame(fr); err != nil {
			return c.fatal(err)
		}
	}
	return nil
}

// handleFrame dispatches one inbound frame.
func (c *Conn) handleFrame(fr *Frame) error {
	switch fr.Type {
	case CTChangeCipherSpec:
		return c.handleChangeCipherSpec()

	case CTAlert:
		return c.handleAlert(fr.Alert)

	case CTHandshake:
		return c.handleHandshake(fr)

	case CTApplicationData:
		if !c.secure {
			return errors.Wrap(AlertUnexpectedMessage,
				"application data before handshake completion")
		}
		c.appData = append(c.appData, fr.Data...)
		return nil

	default:
		return errors.Wrapf(AlertUnexpectedMessage,
			"unexpected record type %v", fr.Type)
	}
}

// handleChangeCipherSpec flips the read side to the pending session.
func (c *Conn) handleChangeCipherSpec() error {
	if c.secure || c.pending.suite == nil ||
		(len(c.pending.preMaster) == 0 && c.pending.masterSecret == nil) {
		return errors.Wrap(AlertUnexpectedMessage,
			"unexpected change_cipher_spec")
	}
	return c.switchToPending(true)
}

func (c *Conn) handleAlert(alert *Alert) error {
	if alert.Description == AlertCloseNotify {
		c.peerClosed = true
		c.err = io.EOF
		return io.EOF
	}
	if alert.Level == AlertLevelFatal {
		c.peerClosed = true
		return errors.Wrap(alert.Description, "remote fatal alert")
	}
	// Warning-level alerts are tolerated silently.
	c.log.Debug().Stringer("alert", alert).Msg("ignoring warning alert")
	return nil
}

// handleHandshake feeds one handshake frame through the
// role-parameterized state machine. A skip verdict advances the wait
// state and re-dispatches the same frame.
func (c *Conn) handleHandshake(fr *Frame) error {
	if fr.Handshake == HTHelloRequest {
		if !c.isClient {
			return errors.Wrap(AlertUnexpectedMessage,
				"hello_request from client")
		}
		// Renegotiation is unsupported; the request is ignored and
		// never enters the transcript.
		c.log.Debug().Msg("ignoring hello_request")
		return nil
	}
	c.pending.addHandshakeMessage(fr.RawBody)

	c.log.Debug().
		Stringer("type", fr.Handshake).
		Stringer("wait", c.wait).
		Msg("handshake message")

	for {
		var res stepResult
		var err error
		if c.isClient {
			res, err = c.clientStep(fr)
		} else {
			res, err = c.serverStep(fr)
		}
		if err != nil {
			return err
		}
		if res != stepSkip {
			return nil
		}
	}
}

// switchToPending atomically reassigns one direction to the pending
// session. The first switch computes the master secret and derives
// the key material; a read-side switch caches the expected peer
// Finished. When both sides alias pending the triangle collapses: the
// transcript is cleared and a fresh pending session is allocated.
func (c *Conn) switchToPending(read bool) error {
	p := c.pending
	if err := p.deriveKeys(c.isClient); err != nil {
		return err
	}
	if read {
		label := labelClientFinished
		if c.isClient {
			label = labelServerFinished
		}
		p.verify = p.finishedVerify(label)
		c.read = p
		c.parser.session = p
	} else {
		c.write = p
		c.framer.session = p
	}
	if c.read == c.write {
		p.clearMessages()
		c.pending = newPendingSession()
	}
	return nil
}

// changeCipherAndFinish emits change_cipher_spec, flips the write
// side, and sends the Finished message computed over the transcript
// up to this point.
func (c *Conn) changeCipherAndFinish() error {
	p := c.pending
	if err := p.computeMaster(); err != nil {
		return err
	}
	label := labelServerFinished
	if c.isClient {
		label = labelClientFinished
	}
	verify := p.finishedVerify(label)

	if err := c.framer.WriteChangeCipherSpec(); err != nil {
		return err
	}
	if err := c.switchToPending(false); err != nil {
		return err
	}
	return c.framer.WriteHandshake(&finishedMsg{verifyData: verify})
}

// verifyPeerFinished compares the received Finished verify_data
// against the value cached at the read-side cipher switch.
func (c *Conn) verifyPeerFinished(m *finishedMsg) bool {
	expected := c.read.verify
	if len(expected) == 0 || len(m.verifyData) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(m.verifyData, expected) == 1
}

// finishHandshake marks the connection secure.
func (c *Conn) finishHandshake() {
	c.secure = true
	c.setWait(waitNone)
	c.log.Debug().Stringer("version", c.vers).
		Stringer("suite", c.suite.id).Msg("handshake complete")
	if c.OnSecure != nil {
		c.OnSecure()
	}
}

// selectSuite walks our suites in priority order and picks the first
// one the peer also offers that fits the negotiated version. All
// registered suites are RSA-authenticated.
func (c *Conn) selectSuite(offered []CipherSuite,
	vers ProtocolVersion) *suiteInfo {

	for _, id := range c.config.suites() {
		info := suiteByID(id)
		if info == nil || info.minVersion > vers {
			continue
		}
		for _, o := range offered {
			if o == id {
				return info
			}
		}
	}
	return nil
}

// selectCompression picks the first of our compression methods the
// peer also offers.
func (c *Conn) selectCompression(offered []CompressionMethod) (
	CompressionMethod, bool) {

	for _, own := range c.config.compressions() {
		for _, o := range offered {
			if own == o {
				return own, true
			}
		}
	}
	return 0, false
}

// leafCertificate picks the end-entity certificate from the chain.
// Chain validation is the caller's concern.
func leafCertificate(chain [][]byte) (*x509.Certificate, error) {
	if len(chain) == 0 {
		return nil, errors.Wrap(AlertBadCertificate, "empty certificate list")
	}
	var first *x509.Certificate
	for _, der := range chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, errors.Wrap(AlertBadCertificate, err.Error())
		}
		if first == nil {
			first = cert
		}
		if !cert.IsCA {
			return cert, nil
		}
	}
	return first, nil
}

// Read returns decrypted application data. It completes the
// handshake first.
func (c *Conn) Read(p []byte) (int, error) {
	if err := c.Handshake(); err != nil {
		return 0, err
	}
	for len(c.appData) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		fr, err := c.parser.Next()
		if err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, c.fatal(err)
		}
		if err := c.handleFrame(fr); err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, c.fatal(err)
		}
	}
	n := copy(p, c.appData)
	c.appData = c.appData[n:]
	return n, nil
}

// Write sends application data. It completes the handshake first.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.Handshake(); err != nil {
		return 0, err
	}
	if err := c.framer.WriteApplicationData(p); err != nil {
		return 0, c.fatal(err)
	}
	return len(p), nil
}

// Close sends close_notify if the connection is still healthy and
// closes the transport.
func (c *Conn) Close() error {
	var result error
	if c.err == nil && !c.peerClosed && c.started {
		if err := c.sendAlert(AlertCloseNotify); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := c.conn.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
