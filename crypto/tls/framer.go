//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Framer encodes typed commands into record-layer bytes. Outgoing
// records pass through the active write session for compression and
// encryption. The framer reports two side signals: OnRandom fires
// with every hello random it generates and OnHandshake fires with the
// exact serialized bytes of every handshake message, before record
// framing, so the connection can feed the transcript.
type Framer struct {
	w io.Writer

	// session is the active write-side session; the connection
	// reassigns it on a cipher switch.
	session *Session
	// version stamps outgoing record headers.
	version ProtocolVersion

	rnd   io.Reader
	clock clock.Clock

	OnRandom    func(random []byte)
	OnHandshake func(raw []byte)
}

// NewFramer creates a Framer writing records to w. The initial write
// session is the null session.
func NewFramer(w io.Writer, session *Session, rnd io.Reader,
	clk clock.Clock) *Framer {

	return &Framer{
		w:       w,
		session: session,
		version: VersionTLS10,
		rnd:     rnd,
		clock:   clk,
	}
}

// NewRandom generates a fresh hello random: 4-byte big-endian unix
// seconds followed by 28 random bytes.
func (f *Framer) NewRandom() (Random, error) {
	var r Random

	r.GMTUnixTime = uint32(f.clock.Now().Unix())
	if _, err := io.ReadFull(f.rnd, r.Opaque[:]); err != nil {
		return r, errors.Wrap(AlertInternalError, err.Error())
	}
	if f.OnRandom != nil {
		f.OnRandom(r.bytes())
	}
	return r, nil
}

// WriteChangeCipherSpec emits a change_cipher_spec record. The caller
// flips the write side after this returns.
func (f *Framer) WriteChangeCipherSpec() error {
	return f.writeRecord(CTChangeCipherSpec, []byte{1})
}

// WriteAlert emits an alert record. Fatal alerts imply connection
// termination by the caller.
func (f *Framer) WriteAlert(level AlertLevel, desc AlertDescription) error {
	return f.writeRecord(CTAlert, []byte{byte(level), byte(desc)})
}

// WriteHandshake serializes and emits one handshake message.
func (f *Framer) WriteHandshake(msg handshakeMessage) error {
	body, err := msg.marshal()
	if err != nil {
		return err
	}
	raw := make([]byte, 4+len(body))
	raw[0] = byte(msg.typ())
	raw[1] = byte(len(body) >> 16)
	raw[2] = byte(len(body) >> 8)
	raw[3] = byte(len(body))
	copy(raw[4:], body)

	if f.OnHandshake != nil {
		f.OnHandshake(raw)
	}
	return f.writeRecord(CTHandshake, raw)
}

// WriteApplicationData emits application data records.
func (f *Framer) WriteApplicationData(data []byte) error {
	return f.writeRecord(CTApplicationData, data)
}

// writeRecord fragments payload at the plaintext cap and emits each
// fragment as one record: compress, seal, frame.
func (f *Framer) writeRecord(ct ContentType, payload []byte) error {
	for first := true; first || len(payload) > 0; first = false {
		n := len(payload)
		if n > maxPlaintextLength {
			n = maxPlaintextLength
		}
		frag := payload[:n]
		payload = payload[n:]

		frag, err := f.session.compression.compress(frag)
		if err != nil {
			return err
		}
		wire, err := f.session.encrypt(ct, f.version, frag, f.rnd)
		if err != nil {
			return err
		}

		hdr := [recordHeaderLen]byte{
			byte(ct),
			byte(f.version >> 8), byte(f.version),
			byte(len(wire) >> 8), byte(len(wire)),
		}
		if _, err := f.w.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := f.w.Write(wire); err != nil {
			return err
		}
	}
	return nil
}
