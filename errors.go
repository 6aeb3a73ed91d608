package rowcache

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrMissingConfig = errors.New("rowcache: connections config is required")
	ErrNoStore       = errors.New("rowcache: record store is required")
)

type UnknownHandlerError struct {
	Connection string
	Handler    string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("rowcache: connection %q: unknown handler %q", e.Connection, e.Handler)
}

// OpError wraps a failure raised by a Backend or the RecordStore.
type OpError struct {
	Op         string // e.g. "get", "get_multiple", "find", "find_many"
	Connection string
	Key        string // empty for batch and store operations
	Err        error
}

func (e *OpError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("rowcache: %s %q on %q: %v", e.Op, e.Key, e.Connection, e.Err)
	}
	return fmt.Sprintf("rowcache: %s on %q: %v", e.Op, e.Connection, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(op, conn, key string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Connection: conn, Key: key, Err: err}
}

// closeError collects backend Close failures.
type closeError struct {
	errs map[string]error
}

func (e *closeError) Error() string {
	conns := make([]string, 0, len(e.errs))
	for c := range e.errs {
		conns = append(conns, c)
	}
	sort.Strings(conns)
	return fmt.Sprintf("rowcache: close failed for %d backend(s): %v", len(conns), conns)
}

func (e *closeError) Unwrap() []error {
	out := make([]error, 0, len(e.errs))
	for _, err := range e.errs {
		out = append(out, err)
	}
	return out
}
