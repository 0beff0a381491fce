//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"bytes"
	"crypto/cipher"
	"crypto/hmac"
	"hash"

	"github.com/pkg/errors"
)

// Session holds the cryptographic context of one epoch: negotiated
// suite parameters, derived keys, MAC sequence counters, the
// handshake transcript, and the active cipher and decipher. A zero
// suite means the null session used before the first cipher switch:
// records pass through unprotected.
type Session struct {
	suite       *suiteInfo
	version     ProtocolVersion
	compression CompressionMethod

	clientRandom []byte
	serverRandom []byte
	preMaster    []byte
	masterSecret []byte

	clientMAC []byte
	serverMAC []byte
	clientKey []byte
	serverKey []byte
	clientIV  []byte
	serverIV  []byte

	// Role-assigned after derivation.
	macWrite hash.Hash
	macRead  hash.Hash
	cipher   interface{} // cipher.Stream or cbcMode
	decipher interface{}

	writeSeq uint64
	readSeq  uint64

	messages  bytes.Buffer
	recording bool
	verify    []byte
	derived   bool
}

// newSession creates a null session.
func newSession() *Session {
	return new(Session)
}

// newPendingSession creates a fresh session that records the
// handshake transcript.
func newPendingSession() *Session {
	return &Session{
		recording: true,
	}
}

// load binds the negotiated suite, version, and compression method to
// the session.
func (s *Session) load(suite *suiteInfo, vers ProtocolVersion,
	cm CompressionMethod) {

	s.suite = suite
	s.version = vers
	s.compression = cm
}

// shouldEncrypt reports whether the session protects records.
func (s *Session) shouldEncrypt() bool {
	return s.suite != nil && s.derived
}

// computeMaster derives the master secret from the premaster and the
// hello randoms. It runs once; later calls are no-ops.
func (s *Session) computeMaster() error {
	if s.masterSecret != nil {
		return nil
	}
	if s.suite == nil || len(s.preMaster) == 0 ||
		len(s.clientRandom) != 32 || len(s.serverRandom) != 32 {
		return errors.Wrap(AlertInternalError,
			"session not ready for master secret")
	}
	s.masterSecret = masterFromPreMaster(s.version, s.suite, s.preMaster,
		s.clientRandom, s.serverRandom)
	return nil
}

// deriveKeys expands the master secret into the key block, splits it
// into the six materials, and role-assigns the MAC, cipher, and
// decipher objects. It runs once; later calls are no-ops.
func (s *Session) deriveKeys(isClient bool) error {
	if s.derived {
		return nil
	}
	if err := s.computeMaster(); err != nil {
		return err
	}

	s.clientMAC, s.serverMAC, s.clientKey, s.serverKey, s.clientIV,
		s.serverIV = keysFromMaster(s.version, s.suite, s.masterSecret,
		s.clientRandom, s.serverRandom)

	writeMAC, readMAC := s.clientMAC, s.serverMAC
	writeKey, readKey := s.clientKey, s.serverKey
	writeIV, readIV := s.clientIV, s.serverIV
	if !isClient {
		writeMAC, readMAC = readMAC, writeMAC
		writeKey, readKey = readKey, writeKey
		writeIV, readIV = readIV, writeIV
	}

	s.macWrite = hmac.New(s.suite.macHash, writeMAC)
	s.macRead = hmac.New(s.suite.macHash, readMAC)

	switch s.suite.kind {
	case cipherStream:
		out, err := s.suite.stream(writeKey)
		if err != nil {
			return errors.Wrap(AlertInternalError, err.Error())
		}
		in, err := s.suite.stream(readKey)
		if err != nil {
			return errors.Wrap(AlertInternalError, err.Error())
		}
		s.cipher = out
		s.decipher = in

	case cipherBlock:
		outBlock, err := s.suite.block(writeKey)
		if err != nil {
			return errors.Wrap(AlertInternalError, err.Error())
		}
		inBlock, err := s.suite.block(readKey)
		if err != nil {
			return errors.Wrap(AlertInternalError, err.Error())
		}
		// TLS 1.1 and later derive no IVs from the key block; the CBC
		// state is reset per record from the explicit IV.
		if len(writeIV) == 0 {
			writeIV = make([]byte, outBlock.BlockSize())
		}
		if len(readIV) == 0 {
			readIV = make([]byte, inBlock.BlockSize())
		}
		s.cipher = cipher.NewCBCEncrypter(outBlock, writeIV).(cbcMode)
		s.decipher = cipher.NewCBCDecrypter(inBlock, readIV).(cbcMode)
	}

	s.writeSeq = 0
	s.readSeq = 0
	s.derived = true
	return nil
}

// addHandshakeMessage appends the raw handshake message, with its
// 4-byte header, to the transcript.
func (s *Session) addHandshakeMessage(raw []byte) {
	if s.recording {
		s.messages.Write(raw)
	}
}

// clearMessages drops the recorded transcript.
func (s *Session) clearMessages() {
	s.messages.Reset()
	s.recording = false
}

// hashMessages digests the recorded transcript.
func (s *Session) hashMessages() []byte {
	return transcriptHash(s.version, s.suite, s.messages.Bytes())
}

// finishedVerify computes the Finished verify_data for the given role
// label over the current transcript.
func (s *Session) finishedVerify(label string) []byte {
	out := make([]byte, s.suite.verifyLen)
	prfForVersion(s.version, s.suite)(out, s.masterSecret, label,
		s.hashMessages())
	return out
}
