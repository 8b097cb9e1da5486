package guard

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an action was blocked. Every rejection
// carries exactly one kind so an external auditor can reconstruct the
// decision without parsing message text.
type ErrorKind int

const (
	// PermissionDenied: a sender, asset, receiver, router or market is
	// not on the applicable whitelist, or a policy bound was exceeded.
	PermissionDenied ErrorKind = iota + 1

	// ConfigurationMissing: a router or vault is enabled but its
	// companion configuration (e.g. order vault) is unset.
	ConfigurationMissing

	// MalformedAction: payload too short for a selector, or the
	// arguments fail to decode against the expected shape.
	MalformedAction

	// UnrecognizedAction: selector or action code outside the
	// supported closed set. This is also the dispatcher's no-match
	// verdict; there is no implicit allow.
	UnrecognizedAction

	// EnvelopeViolation: balance-envelope post-check failed, or a
	// zero minimum output was declared.
	EnvelopeViolation
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission denied"
	case ConfigurationMissing:
		return "configuration missing"
	case MalformedAction:
		return "malformed action"
	case UnrecognizedAction:
		return "unrecognized action"
	case EnvelopeViolation:
		return "envelope violation"
	default:
		return "unknown"
	}
}

// Error is the engine's only error type. Key names the offending
// address, selector or value.
type Error struct {
	Kind ErrorKind
	Key  string
	Msg  string
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Msg, e.Key)
}

// Is lets callers match on the kind alone: errors.Is(err, &Error{Kind: k}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Key == "" || t.Key == e.Key)
}

func denied(msg, key string) error {
	return &Error{Kind: PermissionDenied, Key: key, Msg: msg}
}

func unconfigured(msg, key string) error {
	return &Error{Kind: ConfigurationMissing, Key: key, Msg: msg}
}

func malformed(msg, key string) error {
	return &Error{Kind: MalformedAction, Key: key, Msg: msg}
}

func unrecognized(msg, key string) error {
	return &Error{Kind: UnrecognizedAction, Key: key, Msg: msg}
}

func violation(msg, key string) error {
	return &Error{Kind: EnvelopeViolation, Key: key, Msg: msg}
}

// KindOf extracts the kind from an engine error, unwrapping as needed.
// Foreign errors report 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
