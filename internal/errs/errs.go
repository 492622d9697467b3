// Package errs defines the error taxonomy shared across the tokenizer's
// subsystems. Kinds are sentinel values checked with errors.Is; callers that
// need the underlying cause use errors.Unwrap / errors.As.
package errs

import "errors"

var (
	// VocabFormatError marks malformed vocabulary JSON: invalid base64,
	// duplicate ranks, or a non-contiguous rank set.
	VocabFormatError = errors.New("vocab format error")

	// VocabSizeTooSmall marks a training target below the byte-alphabet size.
	VocabSizeTooSmall = errors.New("target vocab size too small")

	// InvalidMerge marks a merge referring to ids not yet defined. This is a
	// programming error that should never surface if internal invariants hold.
	InvalidMerge = errors.New("invalid merge")

	// CacheInvalid marks a cache that failed to load; always recovered
	// locally by the cache package itself, never returned to a façade caller.
	CacheInvalid = errors.New("cache invalid")

	// IoError wraps filesystem read/write failures.
	IoError = errors.New("io error")
)

// Wrap annotates err with a message while preserving errors.Is matching
// against the given sentinel kind.
func Wrap(kind error, msg string, err error) error {
	if err == nil {
		return errWithKind(kind, msg)
	}
	return &wrapped{kind: kind, msg: msg, cause: err}
}

type wrapped struct {
	kind  error
	msg   string
	cause error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.msg
	}
	return w.msg + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() error {
	if w.cause != nil {
		return w.cause
	}
	return w.kind
}

func (w *wrapped) Is(target error) bool {
	return target == w.kind
}

func errWithKind(kind error, msg string) error {
	return &wrapped{kind: kind, msg: msg}
}
