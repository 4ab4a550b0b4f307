package oracle

import (
	"context"
	"errors"
	"time"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/metrics"
	"probate-resolver/internal/common/retry"
	"probate-resolver/internal/models"
)

// Retrying retries transient oracle failures with backoff. Once attempts are
// exhausted it returns a zero-confidence result flagged Degraded instead of an
// error, so callers can treat every answer alike.
type Retrying struct {
	inner  Oracle
	policy retry.Policy
	logger logger.Logger
}

func NewRetrying(inner Oracle, policy retry.Policy, log logger.Logger) *Retrying {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Retrying{inner: inner, policy: policy, logger: log}
}

// Match never returns a non-nil error.
func (r *Retrying) Match(ctx context.Context, target Target, candidates []models.Candidate) (models.MatchResult, error) {
	if len(candidates) == 0 {
		return models.NoMatchResult("no candidates"), nil
	}

	var result models.MatchResult
	err := retry.Do(ctx, r.policy, func(ctx context.Context, attempt int) error {
		res, err := r.inner.Match(ctx, target, candidates)
		if err != nil {
			metrics.OracleCalls.WithLabelValues("error").Inc()
			if errors.Is(err, context.Canceled) {
				return retry.Permanent(err)
			}
			return err
		}
		metrics.OracleCalls.WithLabelValues("ok").Inc()
		result = res
		return nil
	}, func(attempt int, err error, next time.Duration) {
		r.logger.Warn("match oracle failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"backoff": next.String(),
			"error":   err.Error(),
		})
	})

	if err != nil {
		exhausted := apperrors.NewOracleExhaustedError(r.policy.MaxAttempts, err)
		r.logger.Error("match oracle gave up", map[string]interface{}{
			"subject": target.SubjectName,
			"error":   exhausted.Error(),
		})
		degraded := models.NoMatchResult("AI Error: " + err.Error())
		degraded.Degraded = true
		return degraded, nil
	}
	return sanitize(result, len(candidates)), nil
}
