package main

// kernelMastHash folds a nonce into the block kernel's Merkle root along
// the two authentication paths. The combination order is fixed:
//
//	h0    = pair(varlen(nonce), header[0])
//	h1    = pair(h0, header[1])
//	h2    = pair(header[2], h1)
//	score = pair(pair(varlen(h2), kernel[0]), kernel[1])
//
// Lower scores are better; the result is compared against the template
// threshold.
func kernelMastHash(h digestHasher, kernelPath [2]Digest, headerPath [3]Digest, nonce Digest) Digest {
	var buf [digestByteLen]byte
	h0 := h.HashPair(h.HashVarlen(nonce.encodeTo(&buf)), headerPath[0])
	h1 := h.HashPair(h0, headerPath[1])
	h2 := h.HashPair(headerPath[2], h1)
	leaf := h.HashVarlen(h2.encodeTo(&buf))
	return h.HashPair(h.HashPair(leaf, kernelPath[0]), kernelPath[1])
}
