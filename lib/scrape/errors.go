package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchErrorKind distinguishes the ways a source can fail so the caller
// can decide between backing off, fixing credentials or just moving on.
type FetchErrorKind int

const (
	KindNetwork FetchErrorKind = iota
	KindTimeout
	KindRateLimit
	KindAuth
	KindParse
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	case KindAuth:
		return "auth"
	case KindParse:
		return "parse"
	default:
		return "network"
	}
}

// FetchError is always scoped to a single source. It never aborts the
// processing of other sources.
type FetchError struct {
	Source string
	Kind   FetchErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(source string, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}

// ClassifyTransport maps a transport-level error onto the fetch error
// taxonomy. Deadline and net timeouts become KindTimeout, everything
// else is KindNetwork.
func ClassifyTransport(source string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewFetchError(source, KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewFetchError(source, KindTimeout, err)
	}
	return NewFetchError(source, KindNetwork, err)
}

// ConfigError indicates a mistake in a source's declarative config. It
// is raised at registration time, before any network I/O happens.
type ConfigError struct {
	Source string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config for source %q: %s", e.Source, e.Detail)
}
