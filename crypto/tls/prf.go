//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tls

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"hash"
)

// prfFunc expands secret and label||seed into len(result) bytes.
type prfFunc func(result, secret []byte, label string, seed []byte)

// pHash implements P_hash as defined in RFC 5246 section 5.
func pHash(result, secret, seed []byte, hashFunc func() hash.Hash) {
	h := hmac.New(hashFunc, secret)
	h.Write(seed)
	a := h.Sum(nil)

	j := 0
	for j < len(result) {
		h.Reset()
		h.Write(a)
		h.Write(seed)
		b := h.Sum(nil)
		copy(result[j:], b)
		j += len(b)

		h.Reset()
		h.Write(a)
		a = h.Sum(nil)
	}
}

// prf10 implements the TLS 1.0/1.1 PRF: P_MD5 over the first half of
// the secret XORed with P_SHA1 over the second half.
func prf10(result, secret []byte, label string, seed []byte) {
	labelAndSeed := make([]byte, len(label)+len(seed))
	copy(labelAndSeed, label)
	copy(labelAndSeed[len(label):], seed)

	s1, s2 := splitPreMasterSecret(secret)
	pHash(result, s1, labelAndSeed, md5.New)

	result2 := make([]byte, len(result))
	pHash(result2, s2, labelAndSeed, sha1.New)
	for i, b := range result2 {
		result[i] ^= b
	}
}

// prf12 returns the TLS 1.2 PRF built on the suite's hash.
func prf12(hashFunc func() hash.Hash) prfFunc {
	return func(result, secret []byte, label string, seed []byte) {
		labelAndSeed := make([]byte, len(label)+len(seed))
		copy(labelAndSeed, label)
		copy(labelAndSeed[len(label):], seed)

		pHash(result, secret, labelAndSeed, hashFunc)
	}
}

func splitPreMasterSecret(secret []byte) (s1, s2 []byte) {
	s1 = secret[0 : (len(secret)+1)/2]
	s2 = secret[len(secret)/2:]
	return
}

// prfForVersion selects the PRF for the negotiated version and suite.
func prfForVersion(vers ProtocolVersion, suite *suiteInfo) prfFunc {
	if vers >= VersionTLS12 {
		return prf12(suite.prfHash)
	}
	return prf10
}

const masterSecretLength = 48

// masterFromPreMaster computes the 48-byte master secret.
func masterFromPreMaster(vers ProtocolVersion, suite *suiteInfo,
	preMaster, clientRandom, serverRandom []byte) []byte {

	seed := make([]byte, 0, len(clientRandom)+len(serverRandom))
	seed = append(seed, clientRandom...)
	seed = append(seed, serverRandom...)

	master := make([]byte, masterSecretLength)
	prfForVersion(vers, suite)(master, preMaster, labelMasterSecret, seed)
	return master
}

// keysFromMaster expands the master secret into the six keyed
// materials, in the RFC 5246 section 6.3 order.
func keysFromMaster(vers ProtocolVersion, suite *suiteInfo,
	master, clientRandom, serverRandom []byte) (
	clientMAC, serverMAC, clientKey, serverKey, clientIV, serverIV []byte) {

	seed := make([]byte, 0, len(serverRandom)+len(clientRandom))
	seed = append(seed, serverRandom...)
	seed = append(seed, clientRandom...)

	macLen := suite.macLen
	keyLen := suite.keyLen
	ivLen := suite.ivLen(vers)

	keyBlock := make([]byte, 2*macLen+2*keyLen+2*ivLen)
	prfForVersion(vers, suite)(keyBlock, master, labelKeyExpansion, seed)

	clientMAC = keyBlock[:macLen]
	keyBlock = keyBlock[macLen:]
	serverMAC = keyBlock[:macLen]
	keyBlock = keyBlock[macLen:]
	clientKey = keyBlock[:keyLen]
	keyBlock = keyBlock[keyLen:]
	serverKey = keyBlock[:keyLen]
	keyBlock = keyBlock[keyLen:]
	clientIV = keyBlock[:ivLen]
	keyBlock = keyBlock[ivLen:]
	serverIV = keyBlock[:ivLen]
	return
}

// transcriptHash digests the handshake transcript for Finished
// verification: MD5 concatenated with SHA1 for TLS 1.0/1.1, the
// suite's PRF hash for TLS 1.2.
func transcriptHash(vers ProtocolVersion, suite *suiteInfo,
	messages []byte) []byte {

	if vers >= VersionTLS12 {
		h := suite.prfHash()
		h.Write(messages)
		return h.Sum(nil)
	}

	hMD5 := md5.New()
	hMD5.Write(messages)
	hSHA1 := sha1.New()
	hSHA1.Write(messages)
	return hSHA1.Sum(hMD5.Sum(nil))
}
