package drillscout

import "github.com/kailas-cloud/drillscout/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest           = domain.ErrInvalidRequest
	ErrUnknownCriterion         = domain.ErrUnknownCriterion
	ErrUnknownCalculation       = domain.ErrUnknownCalculation
	ErrUnknownOperator          = domain.ErrUnknownOperator
	ErrCriterionValueOutOfRange = domain.ErrCriterionValueOutOfRange
	ErrEmbeddingProviderError   = domain.ErrEmbeddingProviderError
)

// IsIntegrityError reports whether err comes from inconsistent catalog data.
func IsIntegrityError(err error) bool { return domain.IsIntegrityError(err) }
