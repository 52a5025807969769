package sheet

import "errors"

// Default page capacities. Legacy hosts refuse to apply anything past the
// first few thousand rules of a single container.
const (
	DefaultCapacity       = 65000
	DefaultLegacyCapacity = 4000
)

var (
	ErrAlreadyInjected = errors.New("already injected stylesheet")
	ErrNotInjected     = errors.New("stylesheet is not injected")
	ErrModeLocked      = errors.New("insertion mode is locked")

	// ErrRejected is wrapped by hosts when they refuse rule content. Any
	// other insertion error is treated as host failure.
	ErrRejected = errors.New("rule rejected by host")
)

// RejectFunc is called for every rule the host refused to take.
type RejectFunc func(h Handle, rule string, err error)

// Options is immutable store configuration, computed once by the caller
// (see config.SheetConfig) and handed to New.
type Options struct {
	// Fast selects native single-rule insertion, otherwise rules are added
	// as raw text fragments and parsed by the host as a whole.
	Fast bool
	// Capacity is the maximum number of rules per page.
	Capacity int
	// ReportRejected makes rejected rules visible in the log as warnings.
	ReportRejected bool
	// OnReject is optional.
	OnReject RejectFunc
}

func (o Options) capacity() int {
	if o.Capacity <= 0 {
		return DefaultCapacity
	}
	return o.Capacity
}
