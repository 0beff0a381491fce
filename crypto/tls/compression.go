//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// compress transforms one record's plaintext with the negotiated
// compression method. Each record is compressed independently so a
// lost record never corrupts the followers.
func (cm CompressionMethod) compress(data []byte) ([]byte, error) {
	switch cm {
	case CompressionNull:
		return data, nil

	case CompressionDeflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, errors.Wrap(AlertInternalError, err.Error())
		}
		if _, err := w.Write(data); err != nil {
			return nil, errors.Wrap(AlertInternalError, err.Error())
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(AlertInternalError, err.Error())
		}
		if buf.Len() > maxCompressedLength {
			return nil, errors.Wrap(AlertInternalError,
				"compressed record too large")
		}
		return buf.Bytes(), nil

	default:
		return nil, errors.Wrapf(AlertInternalError,
			"unknown compression method %d", cm)
	}
}

// decompress reverses compress. Expansion beyond the plaintext cap
// fails with decompression_failure.
func (cm CompressionMethod) decompress(data []byte) ([]byte, error) {
	switch cm {
	case CompressionNull:
		return data, nil

	case CompressionDeflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()

		out := make([]byte, 0, len(data))
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			out = append(out, buf[:n]...)
			if len(out) > maxPlaintextLength {
				return nil, errors.Wrap(AlertDecompressionFailure,
					"decompressed record too large")
			}
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return nil, errors.Wrap(AlertDecompressionFailure,
					err.Error())
			}
		}

	default:
		return nil, errors.Wrapf(AlertDecompressionFailure,
			"unknown compression method %d", cm)
	}
}
