package stage

import "fmt"

// Health summarizes the readiness of a pipeline worker.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Health reports a worker as ready unless it has stopped.
func (s Snapshot) Health() Health {
	if s.State == Stopped {
		return Unhealthy(s.Name, "stopped")
	}
	return Health{Name: s.Name, Ready: true, Detail: fmt.Sprintf("%s, %d processed, %d failed", s.State, s.Processed, s.Failed)}
}
