//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/cipher"
	"crypto/subtle"
	"hash"
	"io"

	"github.com/pkg/errors"
)

// cbcMode extends cipher.BlockMode with the IV reset the explicit-IV
// record format needs on both the write and the read side.
type cbcMode interface {
	cipher.BlockMode
	SetIV([]byte)
}

// computeMAC computes the record MAC over the implicit sequence
// number, the record header, and the payload.
func computeMAC(mac hash.Hash, seq uint64, ct ContentType,
	vers ProtocolVersion, payload []byte) []byte {

	var hdr [13]byte
	hdr[0] = byte(seq >> 56)
	hdr[1] = byte(seq >> 48)
	hdr[2] = byte(seq >> 40)
	hdr[3] = byte(seq >> 32)
	hdr[4] = byte(seq >> 24)
	hdr[5] = byte(seq >> 16)
	hdr[6] = byte(seq >> 8)
	hdr[7] = byte(seq)
	hdr[8] = byte(ct)
	hdr[9] = byte(vers >> 8)
	hdr[10] = byte(vers)
	hdr[11] = byte(len(payload) >> 8)
	hdr[12] = byte(len(payload))

	mac.Reset()
	mac.Write(hdr[:])
	mac.Write(payload)
	return mac.Sum(nil)
}

// encrypt seals one record's plaintext under the session's write
// state and advances the write sequence counter. For the null session
// the payload passes through unchanged.
func (s *Session) encrypt(ct ContentType, vers ProtocolVersion,
	payload []byte, rnd io.Reader) ([]byte, error) {

	if s.writeSeq == 1<<64-1 {
		return nil, errors.Wrap(AlertInternalError,
			"write sequence number overflow")
	}
	if !s.shouldEncrypt() {
		s.writeSeq++
		return payload, nil
	}

	mac := computeMAC(s.macWrite, s.writeSeq, ct, vers, payload)
	s.writeSeq++

	switch c := s.cipher.(type) {
	case cipher.Stream:
		buf := make([]byte, len(payload)+len(mac))
		copy(buf, payload)
		copy(buf[len(payload):], mac)
		c.XORKeyStream(buf, buf)
		return buf, nil

	case cbcMode:
		blockSize := c.BlockSize()
		explicitIVLen := 0
		if vers >= VersionTLS11 {
			explicitIVLen = blockSize
		}
		content := len(payload) + len(mac)
		padCount := blockSize - content%blockSize
		if padCount == 0 {
			padCount = blockSize
		}

		buf := make([]byte, explicitIVLen+content+padCount)
		if explicitIVLen > 0 {
			// The explicit IV travels in the clear and resets the CBC
			// state so no ciphertext chains across records.
			if _, err := io.ReadFull(rnd, buf[:explicitIVLen]); err != nil {
				return nil, errors.Wrap(AlertInternalError, err.Error())
			}
			c.SetIV(buf[:explicitIVLen])
		}
		copy(buf[explicitIVLen:], payload)
		copy(buf[explicitIVLen+len(payload):], mac)
		for i := explicitIVLen + content; i < len(buf); i++ {
			buf[i] = byte(padCount - 1)
		}
		c.CryptBlocks(buf[explicitIVLen:], buf[explicitIVLen:])
		return buf, nil

	default:
		return nil, errors.Wrap(AlertInternalError, "no write cipher")
	}
}

// decrypt opens one record's body under the session's read state and
// advances the read sequence counter. Any authentication failure is
// bad_record_mac.
func (s *Session) decrypt(ct ContentType, vers ProtocolVersion,
	body []byte) ([]byte, error) {

	if s.readSeq == 1<<64-1 {
		return nil, errors.Wrap(AlertInternalError,
			"read sequence number overflow")
	}
	if !s.shouldEncrypt() {
		s.readSeq++
		return body, nil
	}

	macLen := s.suite.macLen
	paddingGood := byte(255)
	var payload []byte

	switch c := s.decipher.(type) {
	case cipher.Stream:
		if len(body) < macLen {
			return nil, errors.Wrap(AlertBadRecordMAC, "short record")
		}
		payload = make([]byte, len(body))
		c.XORKeyStream(payload, body)

	case cbcMode:
		blockSize := c.BlockSize()
		explicitIVLen := 0
		if vers >= VersionTLS11 {
			explicitIVLen = blockSize
		}
		if len(body)%blockSize != 0 ||
			len(body) < explicitIVLen+blockSize {
			return nil, errors.Wrap(AlertBadRecordMAC, "invalid block length")
		}
		if explicitIVLen > 0 {
			c.SetIV(body[:explicitIVLen])
			body = body[explicitIVLen:]
		}
		payload = make([]byte, len(body))
		c.CryptBlocks(payload, body)

		var toRemove int
		toRemove, paddingGood = extractPadding(payload)
		payload = payload[:len(payload)-toRemove]
		if len(payload) < macLen {
			return nil, errors.Wrap(AlertBadRecordMAC, "short record")
		}

	default:
		return nil, errors.Wrap(AlertInternalError, "no read cipher")
	}

	content := payload[:len(payload)-macLen]
	remoteMAC := payload[len(payload)-macLen:]
	localMAC := computeMAC(s.macRead, s.readSeq, ct, vers, content)
	s.readSeq++

	macGood := subtle.ConstantTimeCompare(localMAC, remoteMAC)
	if macGood != 1 || paddingGood != 255 {
		return nil, errors.Wrap(AlertBadRecordMAC, "record MAC mismatch")
	}
	return content, nil
}

// extractPadding returns, in constant time, the number of trailing
// bytes to remove for CBC padding and a mask that is 255 when the
// padding was well formed and 0 otherwise. When the padding bytes are
// wrong but the length byte fits the payload, the removal count still
// follows the length byte so that the MAC runs over the length the
// padding implied; a length byte beyond the payload collapses the
// count to 1.
func extractPadding(payload []byte) (toRemove int, good byte) {
	if len(payload) < 1 {
		return 0, 0
	}
	paddingLen := payload[len(payload)-1]
	t := uint(len(payload)-1) - uint(paddingLen)
	// The MSB of t is zero when paddingLen fits the payload.
	fits := byte(int32(^t) >> 31)
	good = fits

	toCheck := 256
	if toCheck > len(payload) {
		toCheck = len(payload)
	}
	for i := 0; i < toCheck; i++ {
		t := uint(paddingLen) - uint(i)
		// The MSB of t is zero when i <= paddingLen.
		mask := byte(int32(^t) >> 31)
		b := payload[len(payload)-1-i]
		good &^= mask&paddingLen ^ mask&b
	}

	// Replicate any cleared bit across the byte.
	good &= good << 4
	good &= good << 2
	good &= good << 1
	good = uint8(int8(good) >> 7)

	paddingLen &= fits
	toRemove = int(paddingLen) + 1
	return
}
