package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed search or recommendation request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownCriterion signals a drill referencing a criterion that does not exist.
	ErrUnknownCriterion = errors.New("unknown recommendation criterion")
	// ErrUnknownCalculation signals a criterion with an unsupported calculation type.
	ErrUnknownCalculation = errors.New("unknown calculation type")
	// ErrUnknownOperator signals a drill criterion with an operator other than above/below.
	ErrUnknownOperator = errors.New("unknown criterion operator")
	// ErrCriterionValueOutOfRange signals a drill threshold outside its criterion's valid range.
	ErrCriterionValueOutOfRange = errors.New("criterion value out of range")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// IsIntegrityError reports whether err comes from inconsistent catalog data
// that has to be fixed administratively.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrUnknownCriterion) ||
		errors.Is(err, ErrUnknownCalculation) ||
		errors.Is(err, ErrUnknownOperator) ||
		errors.Is(err, ErrCriterionValueOutOfRange)
}
