// Package fetch wraps upstream HTTP calls with bounded retries, credential
// rotation and typed results. Nothing in this package returns a raw error to
// job code: every call ends in a Result whose Kind says what happened.
package fetch

import (
	"bytes"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Kind classifies the outcome of an upstream call.
type Kind string

const (
	KindOK        Kind = "ok"
	KindEmpty     Kind = "empty"
	KindTransient Kind = "transient"
	KindQuota     Kind = "quota"
	KindMalformed Kind = "malformed"
	KindCanceled  Kind = "canceled"
)

var (
	ErrNoKeys        = errors.New("fetch: credential pool is empty")
	ErrKeysExhausted = errors.New("fetch: all credentials rejected")
	ErrUnexpected    = errors.New("fetch: unexpected response status")
)

// Result describes a finished call.
type Result struct {
	Kind     Kind
	Status   int
	Attempts int
	Err      error
}

// OK reports whether a usable payload was received.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Failed reports whether the call failed as opposed to returning no data.
func (r Result) Failed() bool {
	switch r.Kind {
	case KindOK, KindEmpty:
		return false
	default:
		return true
	}
}

// Response carries the body of a successful call alongside its Result.
type Response struct {
	Result
	Body []byte
}

// Classifier maps a completed HTTP exchange to a Kind. It is consulted only
// when a response was received; transport failures are always transient.
type Classifier func(status int, body []byte) Kind

// DefaultClassifier treats 401, 403 and 429 as credential quota errors, 408
// and 5xx as transient, other non-2xx as malformed and an empty 2xx body as
// empty.
func DefaultClassifier(status int, body []byte) Kind {
	return StatusClassifier(http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests)(status, body)
}

// StatusClassifier builds a classifier with a custom set of quota statuses.
func StatusClassifier(quota ...int) Classifier {
	quotaSet := make(map[int]struct{}, len(quota))
	for _, s := range quota {
		quotaSet[s] = struct{}{}
	}
	return func(status int, body []byte) Kind {
		if _, ok := quotaSet[status]; ok {
			return KindQuota
		}
		switch {
		case status >= 200 && status < 300:
			if len(bytes.TrimSpace(body)) == 0 {
				return KindEmpty
			}
			return KindOK
		case status == http.StatusRequestTimeout || status >= 500:
			return KindTransient
		default:
			return KindMalformed
		}
	}
}
