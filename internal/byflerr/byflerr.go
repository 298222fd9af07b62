// Package byflerr defines byfl's error taxonomy (spec.md §7): ConfigError,
// IoError, FormatError, InternalError, and AllocFailure, each a distinct
// wrapped kind built on github.com/cockroachdb/errors so causes chain
// correctly and call sites can distinguish kinds with errors.Is.
package byflerr

import "github.com/cockroachdb/errors"

// Kind classifies which of the five error categories a byfl error belongs
// to.
type Kind int

const (
	_ Kind = iota
	KindConfig
	KindIo
	KindFormat
	KindInternal
	KindAlloc
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindIo:
		return "IoError"
	case KindFormat:
		return "FormatError"
	case KindInternal:
		return "InternalError"
	case KindAlloc:
		return "AllocFailure"
	default:
		return "UnknownError"
	}
}

// sentinel is a singleton per Kind, used purely as an errors.Is anchor;
// actual errors wrap it via errors.Mark so the original message survives.
type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

var (
	sentinelConfig   = &sentinel{KindConfig}
	sentinelIo       = &sentinel{KindIo}
	sentinelFormat   = &sentinel{KindFormat}
	sentinelInternal = &sentinel{KindInternal}
	sentinelAlloc    = &sentinel{KindAlloc}
)

func sentinelFor(k Kind) *sentinel {
	switch k {
	case KindConfig:
		return sentinelConfig
	case KindIo:
		return sentinelIo
	case KindFormat:
		return sentinelFormat
	case KindInternal:
		return sentinelInternal
	case KindAlloc:
		return sentinelAlloc
	default:
		return sentinelInternal
	}
}

// New creates a fresh error of the given kind with the given message.
func New(k Kind, msg string) error {
	return errors.Mark(errors.Newf("%s: %s", k, msg), sentinelFor(k))
}

// Wrap marks err with kind k, preserving its message and cause chain.
func Wrap(k Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "%s: %s", k, msg), sentinelFor(k))
}

// Is reports whether err (or any error it wraps) was created with kind k.
func Is(err error, k Kind) bool {
	return errors.Is(err, sentinelFor(k))
}

// Config, Io, Format, Internal, and Alloc are terse constructors for the
// five kinds, mirroring spec.md §7's taxonomy.
func Config(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelConfig)
}

func Io(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelIo)
}

func Format(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelFormat)
}

func Internal(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelInternal)
}

func Alloc(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinelAlloc)
}
