package main

import (
	"fmt"
	"strings"
)

// Template is a unit of work handed out by the coordinator. It is never
// mutated after decoding; a newer template replaces it wholesale.
type Template struct {
	ID             Digest    `json:"id"`
	KernelAuthPath [2]Digest `json:"kernelAuthPath"`
	HeaderAuthPath [3]Digest `json:"headerAuthPath"`
	Threshold      Digest    `json:"threshold"`
}

// Score computes the MAST hash of nonce against the template.
func (t *Template) Score(h digestHasher, nonce Digest) Digest {
	return kernelMastHash(h, t.KernelAuthPath, t.HeaderAuthPath, nonce)
}

// Passes reports whether score is at or below the template threshold.
func (t *Template) Passes(score Digest) bool {
	return score.LessOrEqual(t.Threshold)
}

// decodeTemplate parses a coordinator template response. Only the shape of
// the document is checked; the coordinator owns its semantics.
func decodeTemplate(data []byte) (*Template, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &decodeError{what: "template", err: fmt.Errorf("empty body")}
	}
	var raw struct {
		ID             *Digest  `json:"id"`
		KernelAuthPath []Digest `json:"kernelAuthPath"`
		HeaderAuthPath []Digest `json:"headerAuthPath"`
		Threshold      *Digest  `json:"threshold"`
	}
	if err := fastJSONUnmarshal(data, &raw); err != nil {
		return nil, &decodeError{what: "template", err: err}
	}
	switch {
	case raw.ID == nil:
		return nil, &decodeError{what: "template", err: fmt.Errorf("missing id")}
	case raw.Threshold == nil:
		return nil, &decodeError{what: "template", err: fmt.Errorf("missing threshold")}
	case len(raw.KernelAuthPath) != 2:
		return nil, &decodeError{what: "template", err: fmt.Errorf("kernelAuthPath must have 2 digests, got %d", len(raw.KernelAuthPath))}
	case len(raw.HeaderAuthPath) != 3:
		return nil, &decodeError{what: "template", err: fmt.Errorf("headerAuthPath must have 3 digests, got %d", len(raw.HeaderAuthPath))}
	}
	t := &Template{
		ID:        *raw.ID,
		Threshold: *raw.Threshold,
	}
	copy(t.KernelAuthPath[:], raw.KernelAuthPath)
	copy(t.HeaderAuthPath[:], raw.HeaderAuthPath)
	return t, nil
}

type workerEventKind uint8

const (
	eventNewTemplate workerEventKind = iota
	eventShutdown
)

// workerEvent is what travels on the template broadcast. A new-template
// event with a nil template means no work is available and workers must
// idle.
type workerEvent struct {
	kind     workerEventKind
	template *Template
}

func newTemplateEvent(t *Template) workerEvent {
	return workerEvent{kind: eventNewTemplate, template: t}
}

func shutdownEvent() workerEvent {
	return workerEvent{kind: eventShutdown}
}

func (e workerEvent) String() string {
	switch e.kind {
	case eventShutdown:
		return "shutdown"
	case eventNewTemplate:
		if e.template == nil {
			return "template(none)"
		}
		return "template(" + e.template.ID.Short() + ")"
	default:
		return "unknown"
	}
}

// Candidate is a nonce that scored at or below its template's threshold.
type Candidate struct {
	TemplateID Digest
	Nonce      Digest
}
