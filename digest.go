package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/crypto/rand"
)

const (
	// digestElements is the number of field elements in a digest.
	digestElements = 5
	// digestByteLen is the size of the canonical byte encoding.
	digestByteLen = digestElements * 8
	// digestHexLen is the size of the canonical hex encoding.
	digestHexLen = digestByteLen * 2

	// goldilocksModulus is p = 2^64 - 2^32 + 1. Every digest element is a
	// canonical residue in [0, p).
	goldilocksModulus uint64 = 0xffffffff00000001
)

// Digest is a fixed-width hash output made of five field elements. It is
// used as template identifier, nonce, score and threshold.
//
// Digests are ordered from the last element to the first: element 4 is the
// most significant word.
type Digest [digestElements]uint64

var (
	// MinDigest is the smallest digest under the digest order.
	MinDigest = Digest{}
	// MaxDigest is the largest canonical digest under the digest order.
	MaxDigest = Digest{
		goldilocksModulus - 1,
		goldilocksModulus - 1,
		goldilocksModulus - 1,
		goldilocksModulus - 1,
		goldilocksModulus - 1,
	}
)

// Compare returns -1, 0 or +1 depending on whether d is below, equal to or
// above other.
func (d Digest) Compare(other Digest) int {
	for i := digestElements - 1; i >= 0; i-- {
		switch {
		case d[i] < other[i]:
			return -1
		case d[i] > other[i]:
			return 1
		}
	}
	return 0
}

// LessOrEqual reports whether d <= other.
func (d Digest) LessOrEqual(other Digest) bool {
	return d.Compare(other) <= 0
}

// encodeTo writes the canonical little-endian encoding into buf and returns
// it as a slice.
func (d Digest) encodeTo(buf *[digestByteLen]byte) []byte {
	for i, e := range d {
		binary.LittleEndian.PutUint64(buf[i*8:], e)
	}
	return buf[:]
}

// Hex returns the canonical fixed-length hex encoding.
func (d Digest) Hex() string {
	var buf [digestByteLen]byte
	return hex.EncodeToString(d.encodeTo(&buf))
}

func (d Digest) String() string {
	return d.Hex()
}

// Short returns an abbreviated hex form for log lines.
func (d Digest) Short() string {
	return d.Hex()[:16] + "..."
}

// ParseDigest decodes the canonical hex encoding of a digest.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if len(s) != digestHexLen {
		return Digest{}, fmt.Errorf("digest hex must be %d characters, got %d", digestHexLen, len(s))
	}
	var buf [digestByteLen]byte
	if _, err := hex.Decode(buf[:], []byte(s)); err != nil {
		return Digest{}, fmt.Errorf("digest hex: %w", err)
	}
	return digestFromBytes(buf[:])
}

func digestFromBytes(b []byte) (Digest, error) {
	if len(b) != digestByteLen {
		return Digest{}, fmt.Errorf("digest must be %d bytes, got %d", digestByteLen, len(b))
	}
	var d Digest
	for i := range d {
		e := binary.LittleEndian.Uint64(b[i*8:])
		if e >= goldilocksModulus {
			return Digest{}, fmt.Errorf("digest element %d is not canonical", i)
		}
		d[i] = e
	}
	return d, nil
}

func digestFromElements(elems []uint64) (Digest, error) {
	if len(elems) != digestElements {
		return Digest{}, fmt.Errorf("digest must have %d elements, got %d", digestElements, len(elems))
	}
	var d Digest
	for i, e := range elems {
		if e >= goldilocksModulus {
			return Digest{}, fmt.Errorf("digest element %d is not canonical", i)
		}
		d[i] = e
	}
	return d, nil
}

// digestFromWide folds the first 40 bytes of a wide hash output into a
// digest, reducing each little-endian word into the field.
func digestFromWide(b []byte) Digest {
	var d Digest
	for i := range d {
		d[i] = reduceWord(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return d
}

// reduceWord maps an arbitrary 64-bit word onto [0, p). One subtraction is
// enough because 2^64 - p < p.
func reduceWord(w uint64) uint64 {
	if w >= goldilocksModulus {
		w -= goldilocksModulus
	}
	return w
}

// randomDigest draws every element uniformly from the field.
func randomDigest(prng *rand.PRNG) Digest {
	var d Digest
	for i := range d {
		d[i] = prng.Uint64N(goldilocksModulus)
	}
	return d
}

// MarshalJSON encodes the digest as its canonical hex string.
func (d Digest) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Hex() + `"`), nil
}

// UnmarshalJSON accepts either the canonical hex string or an array of five
// integer field elements.
func (d *Digest) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("digest is missing")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := fastJSONUnmarshal([]byte(trimmed), &s); err != nil {
			return err
		}
		parsed, err := ParseDigest(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case '[':
		var elems []uint64
		if err := fastJSONUnmarshal([]byte(trimmed), &elems); err != nil {
			return fmt.Errorf("digest elements: %w", err)
		}
		parsed, err := digestFromElements(elems)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("digest must be a hex string or element array")
	}
}
