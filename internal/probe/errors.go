package probe

import "errors"

// probeError signals that the query subsystem itself is unreachable. A missing
// accelerator or a failed individual query is not a probeError; those degrade
// single facts instead.
type probeError struct {
	reason string
	err    error
}

func (e probeError) Error() string {
	if e.err != nil {
		return "probe: " + e.reason + ": " + e.err.Error()
	}
	return "probe: " + e.reason
}

func (e probeError) Unwrap() error { return e.err }

// ErrProbe constructs a fatal probe error.
func ErrProbe(reason string, err error) error { return probeError{reason: reason, err: err} }

// IsProbeError reports whether err is a fatal probe-subsystem failure.
func IsProbeError(err error) bool {
	var pe probeError
	return errors.As(err, &pe)
}
