package main

import (
	"errors"
	"fmt"
)

// errResultQueueClosed means the submitter is gone. Workers treat it as a
// sign that shutdown is already underway.
var errResultQueueClosed = errors.New("result queue closed")

// errWorkerLimit is returned by SpawnWorker once every worker slot is taken.
var errWorkerLimit = errors.New("worker limit reached")

// transportError covers anything that kept a request from producing a
// usable HTTP response: dial failures, timeouts, non-200 statuses.
type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.op, e.err)
}

func (e *transportError) Unwrap() error { return e.err }

// decodeError means the coordinator answered but the body was malformed.
type decodeError struct {
	what string
	err  error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.what, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

// rejectedSubmissionError is returned when the coordinator answers
// success=false. Reason is the coordinator's own wording.
type rejectedSubmissionError struct {
	Reason string
}

func (e *rejectedSubmissionError) Error() string {
	if e.Reason == "" {
		return "submission rejected"
	}
	return "submission rejected: " + e.Reason
}

type httpStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *httpStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("http status %s", e.Status)
}

func isTransportError(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

// rejectionReason extracts the coordinator's reason when err is a
// rejection.
func rejectionReason(err error) (string, bool) {
	var re *rejectedSubmissionError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
