//go:build !noavx

package main

import simdsha "github.com/minio/sha256-simd"

// newSHA256Hasher widens sha256-simd, which picks SHA-NI or AVX2 at run
// time when the CPU has them.
func newSHA256Hasher() digestHasher {
	return sum256Hasher{name: hasherSHA256 + "/simd", sum: simdsha.Sum256}
}
