package domain

// InputValidationError covers malformed boundary inputs: bad panels,
// non-positive capital, inverted window pairs. It fails the whole run
// before any grid work starts.
type InputValidationError struct {
	Err error
}

func (e InputValidationError) Error() string {
	return e.Err.Error()
}

func (e InputValidationError) Unwrap() error {
	return e.Err
}

// InsufficientDataError means the panel is too short for the requested
// computation (returns, covariance, or a moving-average window).
type InsufficientDataError struct {
	Err error
}

func (e InsufficientDataError) Error() string {
	return e.Err.Error()
}

func (e InsufficientDataError) Unwrap() error {
	return e.Err
}

// InfeasibleOptimizationError means the constraint set cannot be
// satisfied, e.g. an empty asset universe or a covariance matrix that
// is not positive semi-definite after cleaning.
type InfeasibleOptimizationError struct {
	Err error
}

func (e InfeasibleOptimizationError) Error() string {
	return e.Err.Error()
}

func (e InfeasibleOptimizationError) Unwrap() error {
	return e.Err
}

// DataIntegrityError means a gap or undefined numeric value was found
// mid-series. These are rejected, never silently propagated into an
// equity curve.
type DataIntegrityError struct {
	Err error
}

func (e DataIntegrityError) Error() string {
	return e.Err.Error()
}

func (e DataIntegrityError) Unwrap() error {
	return e.Err
}
