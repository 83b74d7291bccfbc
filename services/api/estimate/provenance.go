package estimate

// Provenance records whether data came from an upstream or was estimated.
type Provenance string

const (
	Live      Provenance = "live"
	Estimated Provenance = "estimated"
)

// Result carries data together with where it came from.
type Result[T any] struct {
	Data       T
	Provenance Provenance
	Reason     string
}

// LiveResult tags data fetched from an upstream.
func LiveResult[T any](data T) Result[T] {
	return Result[T]{Data: data, Provenance: Live}
}

// Degraded tags data produced by a fallback.
func Degraded[T any](data T, reason string) Result[T] {
	return Result[T]{Data: data, Provenance: Estimated, Reason: reason}
}

// Source is the public provenance view of a Result.
type Source struct {
	Provenance Provenance `json:"provenance"`
	Reason     string     `json:"reason,omitempty"`
}

// Source returns the public provenance view.
func (r Result[T]) Source() Source {
	return Source{Provenance: r.Provenance, Reason: r.Reason}
}

// IsLive reports whether the data came from an upstream.
func (r Result[T]) IsLive() bool { return r.Provenance == Live }
