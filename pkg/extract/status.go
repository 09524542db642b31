package extract

// Status is the coarse lifecycle state of a pipeline operation. It is
// emitted to the caller's sink rather than stored globally; it is not an
// exclusion lock, and callers must serialize triggering operations
// themselves.
type Status string

const (
	StatusReady      Status = "ready"
	StatusExtracting Status = "extracting"
	StatusRetrieving Status = "retrieving"
	StatusError      Status = "error"
)

// StatusFunc receives lifecycle status transitions.
type StatusFunc func(Status)

func (f StatusFunc) emit(s Status) {
	if f != nil {
		f(s)
	}
}
