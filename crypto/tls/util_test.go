//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func h2b(h string) []byte {
	b, _ := hex.DecodeString(h)
	return b
}

func assertEqualBytes(t *testing.T, a, b []byte) {
	t.Helper()
	assert.Equal(t, a, b, "Not Equal!\n%x\n%x", a, b)
}

// newTestCodec creates a framer and parser joined by an in-memory
// buffer, both on null sessions.
func newTestCodec() (*Framer, *Parser, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	f := NewFramer(buf, newSession(), rand.Reader, clock.New())
	p := NewParser(buf, newSession())
	return f, p, buf
}
