//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"io"

	"github.com/pkg/errors"
)

// Frame is one decoded protocol event: a change_cipher_spec, an
// alert, a reassembled handshake message, or application data.
type Frame struct {
	Type    ContentType
	Version ProtocolVersion

	// Handshake frames.
	Handshake HandshakeType
	Message   handshakeMessage
	// RawBody holds the exact type||length||body bytes for the
	// transcript.
	RawBody []byte

	Alert *Alert
	Data  []byte
}

// Parser incrementally decodes the inbound byte stream into frames:
// record headers, decryption and decompression through the active
// read session, handshake reassembly across records, and per-variant
// body parsing. Frames are produced lazily by Next in arrival order.
type Parser struct {
	r io.Reader

	// session is the active read-side session; the connection
	// reassigns it on a cipher switch.
	session *Session
	// version is the expected record version; zero accepts any.
	version ProtocolVersion

	hdr   [recordHeaderLen]byte
	hsBuf []byte
	// hsVers remembers the record version the buffered handshake
	// data arrived under.
	hsVers ProtocolVersion
}

// NewParser creates a Parser reading records from r. The initial read
// session is the null session.
func NewParser(r io.Reader, session *Session) *Parser {
	return &Parser{
		r:       r,
		session: session,
	}
}

// Next returns the next frame. It blocks on the underlying reader
// until a complete frame is available.
func (p *Parser) Next() (*Frame, error) {
	for {
		if fr, err := p.nextHandshake(); fr != nil || err != nil {
			return fr, err
		}

		if _, err := io.ReadFull(p.r, p.hdr[:]); err != nil {
			return nil, err
		}
		ct := ContentType(p.hdr[0])
		vers := ProtocolVersion(p.hdr[1])<<8 | ProtocolVersion(p.hdr[2])
		length := int(p.hdr[3])<<8 | int(p.hdr[4])

		switch ct {
		case CTChangeCipherSpec, CTAlert, CTHandshake, CTApplicationData:
		default:
			return nil, errors.Wrapf(AlertUnexpectedMessage,
				"unknown record type %d", p.hdr[0])
		}
		if length > maxCiphertextLength {
			return nil, errors.Wrapf(AlertRecordOverflow,
				"record length %d", length)
		}
		if p.version != 0 && vers != p.version {
			return nil, errors.Wrapf(AlertProtocolVersion,
				"record version %v, expected %v", vers, p.version)
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(p.r, body); err != nil {
			return nil, err
		}

		plain, err := p.session.decrypt(ct, vers, body)
		if err != nil {
			return nil, err
		}
		plain, err = p.session.compression.decompress(plain)
		if err != nil {
			return nil, err
		}

		if len(p.hsBuf) > 0 && ct != CTHandshake && ct != CTAlert {
			return nil, errors.Wrap(AlertUnexpectedMessage,
				"record interleaved with handshake message")
		}

		switch ct {
		case CTChangeCipherSpec:
			if len(plain) != 1 || plain[0] != 1 {
				return nil, errors.Wrap(AlertDecodeError,
					"invalid change_cipher_spec")
			}
			return &Frame{
				Type:    ct,
				Version: vers,
			}, nil

		case CTAlert:
			if len(plain) != 2 {
				return nil, errors.Wrap(AlertDecodeError, "invalid alert")
			}
			return &Frame{
				Type:    ct,
				Version: vers,
				Alert: &Alert{
					Level:       AlertLevel(plain[0]),
					Description: AlertDescription(plain[1]),
				},
			}, nil

		case CTHandshake:
			p.hsBuf = append(p.hsBuf, plain...)
			p.hsVers = vers

		case CTApplicationData:
			return &Frame{
				Type:    ct,
				Version: vers,
				Data:    plain,
			}, nil
		}
	}
}

// nextHandshake peels one complete handshake message off the
// reassembly buffer, if available.
func (p *Parser) nextHandshake() (*Frame, error) {
	if len(p.hsBuf) < 4 {
		return nil, nil
	}
	bodyLen := int(p.hsBuf[1])<<16 | int(p.hsBuf[2])<<8 | int(p.hsBuf[3])
	if len(p.hsBuf) < 4+bodyLen {
		return nil, nil
	}

	raw := make([]byte, 4+bodyLen)
	copy(raw, p.hsBuf)
	p.hsBuf = p.hsBuf[4+bodyLen:]

	ht := HandshakeType(raw[0])
	msg, err := p.newMessage(ht)
	if err != nil {
		return nil, err
	}
	if err := msg.unmarshal(raw[4:]); err != nil {
		return nil, err
	}
	return &Frame{
		Type:      CTHandshake,
		Version:   p.hsVers,
		Handshake: ht,
		Message:   msg,
		RawBody:   raw,
	}, nil
}

func (p *Parser) newMessage(ht HandshakeType) (handshakeMessage, error) {
	switch ht {
	case HTHelloRequest:
		return new(helloRequestMsg), nil
	case HTClientHello:
		return new(clientHelloMsg), nil
	case HTServerHello:
		return new(serverHelloMsg), nil
	case HTCertificate:
		return new(certificateMsg), nil
	case HTServerKeyExchange:
		return new(serverKeyExchangeMsg), nil
	case HTCertificateRequest:
		return &certificateRequestMsg{
			hasSignatureAlgorithms: p.version >= VersionTLS12,
		}, nil
	case HTServerHelloDone:
		return new(serverHelloDoneMsg), nil
	case HTClientKeyExchange:
		return new(clientKeyExchangeMsg), nil
	case HTFinished:
		return new(finishedMsg), nil
	default:
		return nil, errors.Wrapf(AlertUnexpectedMessage,
			"unknown handshake type %d", uint8(ht))
	}
}
