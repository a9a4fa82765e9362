package main

import (
	"fmt"
	"testing"

	"github.com/decred/dcrd/crypto/rand"
)

func newTestPRNG(t *testing.T) *rand.PRNG {
	t.Helper()
	prng, err := rand.NewPRNG()
	if err != nil {
		t.Fatalf("NewPRNG: %v", err)
	}
	return prng
}

func testDigest(seed uint64) Digest {
	return Digest{seed, seed + 1, seed + 2, seed + 3, seed + 4}
}

func testTemplate(seed uint64, threshold Digest) *Template {
	return &Template{
		ID:             testDigest(seed),
		KernelAuthPath: [2]Digest{testDigest(seed + 10), testDigest(seed + 20)},
		HeaderAuthPath: [3]Digest{testDigest(seed + 30), testDigest(seed + 40), testDigest(seed + 50)},
		Threshold:      threshold,
	}
}

// templateJSON renders tpl the way the coordinator sends it.
func templateJSON(tpl *Template) string {
	return fmt.Sprintf(`{"id":"%s","kernelAuthPath":["%s","%s"],"headerAuthPath":["%s","%s","%s"],"threshold":"%s"}`,
		tpl.ID.Hex(),
		tpl.KernelAuthPath[0].Hex(), tpl.KernelAuthPath[1].Hex(),
		tpl.HeaderAuthPath[0].Hex(), tpl.HeaderAuthPath[1].Hex(), tpl.HeaderAuthPath[2].Hex(),
		tpl.Threshold.Hex(),
	)
}
