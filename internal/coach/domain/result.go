package domain

// Outcome classifies how a state read ended.
type Outcome int

const (
	// OutcomeOK means the read completed; an absent value is still OK.
	OutcomeOK Outcome = iota
	// OutcomeDegraded means storage failed and the zero value stands in.
	OutcomeDegraded
	// OutcomeFatal means the read could not be attempted at all.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result carries a read value together with how it was obtained.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

func OK[T any](value T) Result[T] {
	return Result[T]{Value: value, Outcome: OutcomeOK}
}

func Degraded[T any](fallback T, err error) Result[T] {
	return Result[T]{Value: fallback, Outcome: OutcomeDegraded, Err: err}
}

func Fatal[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeFatal, Err: err}
}

func (r Result[T]) IsFatal() bool {
	return r.Outcome == OutcomeFatal
}
