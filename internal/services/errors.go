package services

// PreconditionError marks a failure whose cause is missing upstream state
// rather than a provider fault. Always terminal; the retry policy must not
// burn attempts on it.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// NotFoundError marks a lookup miss at a service boundary.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }
