package rewards

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/internal/metrics"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// PaymentRail is the external transfer collaborator. It may fail or be slow;
// the forwarder treats every call as best effort.
type PaymentRail interface {
	Forward(ctx context.Context, accountID string, amount int64, reference string) error
}

// Forwarder drains the payment-forward outbox on a schedule. Ledger entries
// are already committed before a forward is attempted; a failed transfer is
// recorded on the outbox row and retried until the attempt cap, never rolled
// back into the ledger.
type Forwarder struct {
	ledger *repository.LedgerRepository
	rail   PaymentRail
	cfg    config.ForwarderConfig
	log    *logger.Logger
	cron   *cron.Cron
}

// NewForwarder creates a new payment forwarder.
func NewForwarder(
	ledger *repository.LedgerRepository,
	rail PaymentRail,
	cfg config.ForwarderConfig,
	log *logger.Logger,
) *Forwarder {
	return &Forwarder{
		ledger: ledger,
		rail:   rail,
		cfg:    cfg,
		log:    log,
	}
}

// Start registers the forwarding job and starts the scheduler.
func (f *Forwarder) Start() error {
	if !f.cfg.Enabled {
		f.log.Info().Msg("Payment forwarder is disabled in configuration")
		return nil
	}

	f.cron = cron.New()
	if _, err := f.cron.AddFunc(f.cfg.Schedule, func() {
		f.Run(context.Background())
	}); err != nil {
		return err
	}
	f.cron.Start()

	f.log.Info().Str("schedule", f.cfg.Schedule).Msg("Payment forwarder started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (f *Forwarder) Stop() {
	if f.cron != nil {
		<-f.cron.Stop().Done()
	}
}

// Run processes one batch of pending forwards and returns how many were sent
// and how many failed this pass.
func (f *Forwarder) Run(ctx context.Context) (sent, failed int) {
	start := time.Now()

	forwards, err := f.ledger.PendingForwards(f.cfg.MaxAttempts, f.cfg.BatchSize)
	if err != nil {
		f.log.Error().Err(err).Msg("Failed to load pending payment forwards")
		return 0, 0
	}

	for i := range forwards {
		forward := &forwards[i]
		if err := f.rail.Forward(ctx, forward.AccountID, forward.Amount, forward.LedgerEntryID); err != nil {
			failed++
			metrics.RecordPaymentForward(models.ForwardFailed)
			f.log.Warn().
				Err(err).
				Str("ledger_entry_id", forward.LedgerEntryID).
				Int("attempts", forward.Attempts+1).
				Msg("Payment forward attempt failed")
			if merr := f.ledger.MarkForwardFailed(forward, err.Error()); merr != nil {
				f.log.Error().Err(merr).Uint("forward_id", forward.ID).Msg("Failed to record forward failure")
			}
			continue
		}

		sent++
		metrics.RecordPaymentForward(models.ForwardSent)
		if merr := f.ledger.MarkForwardSent(forward); merr != nil {
			// The transfer went through but the bookkeeping write failed;
			// the rail deduplicates on the ledger entry reference, so the
			// retry on the next run is safe.
			f.log.Error().Err(merr).Uint("forward_id", forward.ID).Msg("Failed to record forward success")
		}
	}

	metrics.ObserveForwarderJobDuration(time.Since(start).Seconds())

	if sent > 0 || failed > 0 {
		f.log.Info().
			Int("sent", sent).
			Int("failed", failed).
			Msg("Payment forwarder run complete")
	}
	return sent, failed
}
