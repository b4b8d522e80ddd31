// internal/services/custody_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/imi-licensing/internal/metrics"
	"github.com/javajoker/imi-licensing/internal/models"
)

// PaymentGateway moves value for one intent and returns an external
// reference for it.
type PaymentGateway interface {
	Execute(ctx context.Context, intent models.ValueIntent) (string, error)
}

// CustodyService drains the intent outbox through a payment gateway.
type CustodyService struct {
	outbox    IntentOutbox
	gateway   PaymentGateway
	batchSize int
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

type SettlementResult struct {
	Settled int `json:"settled"`
	Failed  int `json:"failed"`
}

func NewCustodyService(outbox IntentOutbox, gateway PaymentGateway, batchSize int, m *metrics.Metrics, logger *logrus.Logger) *CustodyService {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CustodyService{
		outbox:    outbox,
		gateway:   gateway,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger,
	}
}

// SettlePending executes one batch of pending intents in emission order.
// Gateway failures mark the intent failed; outbox failures abort the batch.
func (s *CustodyService) SettlePending(ctx context.Context) (SettlementResult, error) {
	var result SettlementResult

	pending, err := s.outbox.PendingIntents(ctx, s.batchSize)
	if err != nil {
		return result, err
	}

	for _, intent := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fields := logrus.Fields{
			"intent_id": intent.ID.String(),
			"kind":      intent.Kind,
			"amount":    intent.Amount,
			"from":      intent.FromPrincipal,
			"receipt":   intent.ReceiptSequence,
		}

		// Nothing moves for a zero amount; payment providers reject those.
		var (
			reference string
			execErr   error
		)
		if intent.Amount == 0 {
			reference = "zero_" + intent.ID.String()
		} else {
			reference, execErr = s.gateway.Execute(ctx, intent)
		}
		if execErr != nil {
			if err := s.outbox.MarkIntentFailed(ctx, intent.ID, execErr.Error()); err != nil && !errors.Is(err, ErrIntentNotPending) {
				return result, err
			}
			result.Failed++
			s.metrics.ObserveSettlement(string(models.IntentStatusFailed))
			s.logger.WithFields(fields).WithError(execErr).Warn("Intent settlement failed")
			continue
		}

		if err := s.outbox.MarkIntentSettled(ctx, intent.ID, reference); err != nil && !errors.Is(err, ErrIntentNotPending) {
			return result, err
		}
		result.Settled++
		s.metrics.ObserveSettlement(string(models.IntentStatusSettled))
		s.logger.WithFields(fields).WithField("reference", reference).Info("Intent settled")
	}

	return result, nil
}

// Run settles pending intents every interval until ctx is cancelled. A
// non-positive interval disables settlement.
func (s *CustodyService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn("Custody settlement disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.SettlePending(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.WithError(err).Error("Custody run failed")
				continue
			}
			if result.Settled+result.Failed > 0 {
				s.logger.WithFields(logrus.Fields{
					"settled": result.Settled,
					"failed":  result.Failed,
				}).Info("Custody run completed")
			}
		}
	}
}

// LoggingGateway acknowledges intents without moving funds. Used when no
// payment provider is configured.
type LoggingGateway struct {
	Logger *logrus.Logger
}

func (g LoggingGateway) Execute(ctx context.Context, intent models.ValueIntent) (string, error) {
	logger := g.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"intent_id": intent.ID.String(),
		"kind":      intent.Kind,
		"amount":    intent.Amount,
	}).Info("Intent acknowledged without payment provider")
	return "noop_" + intent.ID.String(), nil
}
