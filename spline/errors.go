package spline

import "fmt"

// QueryDomainError is returned when a query violates the contract of a spline, such as a time
// outside [0, 1] or a query on a spline that was never built. It is not retryable.
type QueryDomainError struct {
	Op     string
	Value  float64
	Reason string
}

func newQueryDomainError(op string, value float64, reason string) *QueryDomainError {
	return &QueryDomainError{Op: op, Value: value, Reason: reason}
}

func (e *QueryDomainError) Error() string {
	return fmt.Sprintf("%s(%v): %s", e.Op, e.Value, e.Reason)
}
