package main

import (
	"strings"

	"github.com/martinhoefling/goxkcdpwgen/xkcdpwgen"
)

// generateMinerName returns a short memorable name that tells several
// instances apart in logs and notices.
func generateMinerName() string {
	g := xkcdpwgen.NewGenerator()
	g.SetNumWords(3)
	g.SetCapitalize(false)
	g.SetDelimiter("-")
	return strings.TrimSpace(g.GeneratePasswordString())
}
