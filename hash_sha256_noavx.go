//go:build noavx

package main

import stdsha "crypto/sha256"

func newSHA256Hasher() digestHasher {
	return sum256Hasher{name: hasherSHA256 + "/std", sum: stdsha.Sum256}
}
