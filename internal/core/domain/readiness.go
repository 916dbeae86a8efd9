package domain

// Readiness is the state of the retrieval handle.
type Readiness string

const (
	ReadinessUninitialized Readiness = "uninitialized"
	ReadinessReady         Readiness = "ready"
	ReadinessFailed        Readiness = "failed"
)

// ReadinessStatus is reported by the readiness endpoint.
type ReadinessStatus struct {
	State    Readiness `json:"state"`
	Reason   string    `json:"reason,omitempty"`
	Chunks   int       `json:"chunks"`
	Revision int64     `json:"revision"`
}

// IsReady reports whether queries can be answered.
func (s ReadinessStatus) IsReady() bool {
	return s.State == ReadinessReady
}
