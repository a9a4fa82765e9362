package main

import (
	"fmt"
	"strings"

	"github.com/decred/dcrd/crypto/blake256"
	"lukechampine.com/blake3"
)

const (
	hasherBlake3   = "blake3"
	hasherBlake256 = "blake256"
	hasherSHA256   = "sha256"

	// Domain tags keep variable-length hashing and pair hashing apart.
	hashDomainVarlen byte = 0x00
	hashDomainPair   byte = 0x01
)

// digestHasher is the hash primitive the scoring function is built from.
// The backends here are stand-ins for the coordinator's Tip5 sponge, so
// their scores will not validate against a Tip5 coordinator.
// HashPair is order sensitive: HashPair(a, b) != HashPair(b, a) in general.
// Implementations must be pure and safe for concurrent use.
type digestHasher interface {
	Name() string
	HashVarlen(data []byte) Digest
	HashPair(left, right Digest) Digest
}

func newDigestHasher(name string) (digestHasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", hasherBlake3:
		return blake3Hasher{}, nil
	case hasherBlake256:
		return sum256Hasher{name: hasherBlake256, sum: blake256.Sum256}, nil
	case hasherSHA256:
		return newSHA256Hasher(), nil
	default:
		return nil, fmt.Errorf("unknown hasher %q (want %s, %s or %s)", name, hasherBlake3, hasherBlake256, hasherSHA256)
	}
}

// pairInput lays out domain || left || right without allocating.
func pairInput(buf *[1 + 2*digestByteLen]byte, left, right Digest) []byte {
	buf[0] = hashDomainPair
	var tmp [digestByteLen]byte
	copy(buf[1:], left.encodeTo(&tmp))
	copy(buf[1+digestByteLen:], right.encodeTo(&tmp))
	return buf[:]
}

// blake3Hasher uses the BLAKE3 extendable output directly.
type blake3Hasher struct{}

func (blake3Hasher) Name() string { return hasherBlake3 }

func (blake3Hasher) HashVarlen(data []byte) Digest {
	var stack [1 + 2*digestByteLen]byte
	input := stack[:0]
	if 1+len(data) > len(stack) {
		input = make([]byte, 0, 1+len(data))
	}
	input = append(input, hashDomainVarlen)
	input = append(input, data...)
	sum := blake3.Sum512(input)
	return digestFromWide(sum[:])
}

func (blake3Hasher) HashPair(left, right Digest) Digest {
	var buf [1 + 2*digestByteLen]byte
	sum := blake3.Sum512(pairInput(&buf, left, right))
	return digestFromWide(sum[:])
}

// sum256Hasher widens a 32-byte hash to digest size by hashing the input
// twice under a counter byte.
type sum256Hasher struct {
	name string
	sum  func([]byte) [32]byte
}

func (h sum256Hasher) Name() string { return h.name }

func (h sum256Hasher) widen(input []byte) Digest {
	var wide [64]byte
	input[0] = 0
	lo := h.sum(input)
	input[0] = 1
	hi := h.sum(input)
	copy(wide[:32], lo[:])
	copy(wide[32:], hi[:])
	return digestFromWide(wide[:])
}

func (h sum256Hasher) HashVarlen(data []byte) Digest {
	var stack [2 + 2*digestByteLen]byte
	input := stack[:0]
	if 2+len(data) > len(stack) {
		input = make([]byte, 0, 2+len(data))
	}
	input = append(input, 0, hashDomainVarlen)
	input = append(input, data...)
	return h.widen(input)
}

func (h sum256Hasher) HashPair(left, right Digest) Digest {
	var pair [1 + 2*digestByteLen]byte
	var buf [2 + 2*digestByteLen]byte
	copy(buf[1:], pairInput(&pair, left, right))
	return h.widen(buf[:])
}
