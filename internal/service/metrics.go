package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"
)

// Operation outcomes recorded in auth_operations_total.
const (
	outcomeSuccess            = "success"
	outcomeInvalidInput       = "invalid_input"
	outcomeAlreadyExists      = "already_exists"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeInvalidToken       = "invalid_token"
	outcomeExpired            = "expired"
	outcomeError              = "error"
)

var (
	authOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Auth operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	refreshTokensPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_refresh_tokens_purged_total",
			Help: "Expired refresh token rows removed by the retention sweep.",
		},
	)
)

func recordOutcome(operation string, err error) {
	authOperationsTotal.WithLabelValues(operation, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, apperrors.ErrInvalidInput):
		return outcomeInvalidInput
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return outcomeAlreadyExists
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return outcomeInvalidCredentials
	case errors.Is(err, apperrors.ErrInvalidToken):
		return outcomeInvalidToken
	case errors.Is(err, apperrors.ErrTokenExpired):
		return outcomeExpired
	default:
		return outcomeError
	}
}
