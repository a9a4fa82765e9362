package main

import (
	"strings"
	"testing"
)

func TestDigestCompareMostSignificantElementLast(t *testing.T) {
	high := Digest{0, 0, 0, 0, 1}
	low := Digest{goldilocksModulus - 1, goldilocksModulus - 1, goldilocksModulus - 1, goldilocksModulus - 1, 0}
	if high.Compare(low) != 1 {
		t.Fatalf("expected %v > %v", high, low)
	}
	if low.Compare(high) != -1 {
		t.Fatalf("expected %v < %v", low, high)
	}
	if !low.LessOrEqual(low) {
		t.Fatalf("digest must be <= itself")
	}
	if !MinDigest.LessOrEqual(MaxDigest) || MaxDigest.LessOrEqual(MinDigest) {
		t.Fatalf("MinDigest/MaxDigest ordering broken")
	}
}

func TestDigestHexCanonical(t *testing.T) {
	d := Digest{1, 2, 3, 4, 0x0102030405060708}
	h := d.Hex()
	if len(h) != digestHexLen {
		t.Fatalf("hex length = %d, want %d", len(h), digestHexLen)
	}
	if !strings.HasPrefix(h, "0100000000000000") {
		t.Fatalf("expected little-endian first element, got %s", h[:16])
	}
	if !strings.HasSuffix(h, "0807060504030201") {
		t.Fatalf("expected little-endian last element, got %s", h[64:])
	}
	parsed, err := ParseDigest(strings.ToUpper(h))
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != d {
		t.Fatalf("ParseDigest = %v, want %v", parsed, d)
	}
}

func TestParseDigestRejects(t *testing.T) {
	nonCanonical := strings.Repeat("ff", digestByteLen)
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "short", in: "abcd"},
		{name: "not hex", in: strings.Repeat("zz", digestByteLen)},
		{name: "element above modulus", in: nonCanonical},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDigest(tt.in); err == nil {
				t.Fatalf("ParseDigest(%q) expected error", tt.in)
			}
		})
	}
}

func TestDigestUnmarshalJSONForms(t *testing.T) {
	want := Digest{10, 20, 30, 40, 50}

	var fromArray Digest
	if err := fastJSONUnmarshal([]byte(`[10, 20, 30, 40, 50]`), &fromArray); err != nil {
		t.Fatalf("array form: %v", err)
	}
	if fromArray != want {
		t.Fatalf("array form = %v, want %v", fromArray, want)
	}

	var fromHex Digest
	if err := fastJSONUnmarshal([]byte(`"`+want.Hex()+`"`), &fromHex); err != nil {
		t.Fatalf("hex form: %v", err)
	}
	if fromHex != want {
		t.Fatalf("hex form = %v, want %v", fromHex, want)
	}

	var bad Digest
	if err := fastJSONUnmarshal([]byte(`[1, 2, 3]`), &bad); err == nil {
		t.Fatal("expected error for short element array")
	}
	if err := fastJSONUnmarshal([]byte(`[18446744073709551615, 0, 0, 0, 0]`), &bad); err == nil {
		t.Fatal("expected error for non-canonical element")
	}
}

func TestRandomDigestIsCanonical(t *testing.T) {
	prng := newTestPRNG(t)
	seen := make(map[Digest]struct{}, 256)
	for i := 0; i < 256; i++ {
		d := randomDigest(prng)
		for j, e := range d {
			if e >= goldilocksModulus {
				t.Fatalf("element %d not canonical: %d", j, e)
			}
		}
		seen[d] = struct{}{}
	}
	if len(seen) < 256 {
		t.Fatalf("expected 256 distinct random digests, got %d", len(seen))
	}
}

func TestReduceWord(t *testing.T) {
	if got := reduceWord(goldilocksModulus); got != 0 {
		t.Fatalf("reduceWord(p) = %d, want 0", got)
	}
	if got := reduceWord(^uint64(0)); got != ^uint64(0)-goldilocksModulus {
		t.Fatalf("reduceWord(max) = %d", got)
	}
	if got := reduceWord(7); got != 7 {
		t.Fatalf("reduceWord(7) = %d", got)
	}
}
