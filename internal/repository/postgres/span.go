package postgres

import (
	"errors"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"
)

// endSpan ends a query span. A missing row is an expected outcome, not a
// span error.
func endSpan(end func(error), err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		end(nil)
		return
	}
	end(err)
}
