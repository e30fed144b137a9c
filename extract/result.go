package extract

// Status classifies a collaborator response.
type Status int

const (
	// StatusEmpty means the call failed or returned nothing usable.
	StatusEmpty Status = iota
	// StatusMalformed means a response arrived but could not be parsed into
	// the expected structure.
	StatusMalformed
	// StatusOK means Value holds the parsed structure.
	StatusOK
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMalformed:
		return "malformed"
	default:
		return "empty"
	}
}

// Result is the tagged outcome of a best-effort collaborator call. Only an
// OK result carries data; Malformed and Empty are both treated as "no data".
type Result[T any] struct {
	Status Status
	Value  T
	Err    error // cause of a non-OK status, for logging only
}

// OK reports whether the result carries data.
func (r Result[T]) OK() bool { return r.Status == StatusOK }

// ValueOr returns Value for an OK result and fallback otherwise.
func (r Result[T]) ValueOr(fallback T) T {
	if r.Status == StatusOK {
		return r.Value
	}
	return fallback
}

func ok[T any](v T) Result[T] { return Result[T]{Status: StatusOK, Value: v} }

func empty[T any](err error) Result[T] { return Result[T]{Status: StatusEmpty, Err: err} }

func malformed[T any](err error) Result[T] { return Result[T]{Status: StatusMalformed, Err: err} }
