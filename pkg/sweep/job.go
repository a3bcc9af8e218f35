package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feesweep/pkg/config"
	"feesweep/pkg/sol"
)

// Job sweeps withheld transfer fees for one mint on a fixed interval.
type Job struct {
	cfg        *config.Config
	chain      Chain
	aggregator Aggregator
	log        *zap.Logger

	newBackOff func() backoff.BackOff

	mu     sync.RWMutex
	last   *CycleReport
	cycles uint64
}

func New(cfg *config.Config, chain Chain, aggregator Aggregator, log *zap.Logger) *Job {
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{
		cfg:        cfg,
		chain:      chain,
		aggregator: aggregator,
		log:        log.Named("sweep"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 15 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. A failed or panicking cycle never stops the loop.
func (j *Job) Run(ctx context.Context) error {
	j.log.Info("fee sweeper started",
		zap.String("mint", j.cfg.Mint.String()),
		zap.String("vault_owner", j.cfg.FeeVault.PublicKey().String()),
		zap.Duration("interval", j.cfg.Interval))

	for {
		j.runSafely(ctx)

		timer := time.NewTimer(j.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			j.log.Info("fee sweeper stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runSafely is the per-cycle error boundary.
func (j *Job) runSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error("sweep cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
			j.store(&CycleReport{
				StartedAt: time.Now(),
				Err:       fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	report, err := j.RunCycle(ctx)
	if err != nil {
		j.log.Error("sweep cycle failed", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// RunCycle performs one scan, withdraw, burn, swap and distribute pass. The
// returned report is never nil.
func (j *Job) RunCycle(ctx context.Context) (*CycleReport, error) {
	c := &cycle{
		Job: j,
		report: &CycleReport{
			RunID:     uuid.NewString(),
			StartedAt: time.Now(),
		},
	}
	c.log = j.log.With(zap.String("run_id", c.report.RunID))

	err := c.run(ctx)
	c.report.Duration = time.Since(c.report.StartedAt)
	if err != nil {
		c.report.Err = err.Error()
	}
	j.store(c.report)

	c.log.Info("sweep cycle finished",
		zap.Duration("duration", c.report.Duration),
		zap.Uint64("total_fee", c.report.TotalFee),
		zap.Uint64("burned", c.report.Burned),
		zap.Uint64("proceeds", c.report.Proceeds),
		zap.Uint64("distributed", c.report.Distributed),
		zap.Int("recipients", c.report.Recipients),
		zap.Int("failed_batches", c.report.FailedBatches))

	return c.report, err
}

// LastReport returns a copy of the most recent cycle report, or nil before the first cycle.
func (j *Job) LastReport() *CycleReport {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return nil
	}
	r := *j.last
	return &r
}

// Cycles returns how many cycles have completed.
func (j *Job) Cycles() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cycles
}

func (j *Job) store(r *CycleReport) {
	j.mu.Lock()
	j.last = r
	j.cycles++
	j.mu.Unlock()
}

// cycle carries per-run state through the steps.
type cycle struct {
	*Job
	log    *zap.Logger
	report *CycleReport
}

func (c *cycle) run(ctx context.Context) error {
	snapshot, err := c.scan(ctx)
	if err != nil {
		return err
	}
	c.report.TotalFee = snapshot.TotalFee

	vault, err := c.ensureVault(ctx)
	if err != nil {
		return err
	}

	if snapshot.TotalFee <= c.cfg.MinSweepAmount {
		c.log.Info("nothing to sweep",
			zap.Uint64("total_fee", snapshot.TotalFee),
			zap.Uint64("min_sweep_amount", c.cfg.MinSweepAmount))
		return nil
	}

	collected := c.withdraw(ctx, snapshot.Withholding, vault)
	c.report.Collected = collected
	if collected == 0 {
		return fmt.Errorf("no withheld fees were collected")
	}

	burn, swapInput := SplitFee(collected)
	if err := c.burn(ctx, vault, burn); err != nil {
		return err
	}
	c.report.Burned = burn
	c.report.SwapInput = swapInput

	proceeds := c.swap(ctx, swapInput)
	c.report.Proceeds = proceeds

	c.distribute(ctx, snapshot, proceeds)
	return nil
}

// sendBatch signs instructions once and resends that same transaction on
// every retry, so a send that errored after the node forwarded it cannot land
// twice. A new transaction is signed only once the previous one can no longer
// land.
func (c *cycle) sendBatch(ctx context.Context, kind string, index int, instructions []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (solana.Signature, error) {
	var (
		signed *sol.SignedTx
		sig    solana.Signature
	)
	err := c.runBatch(ctx, kind, index, func() error {
		if signed == nil {
			var err error
			signed, err = c.chain.SignTransaction(ctx, instructions, payer, signers...)
			if err != nil {
				return err
			}
		}

		var err error
		sig, err = c.chain.SendSigned(ctx, signed)
		if errors.Is(err, sol.ErrBlockhashExpired) || errors.Is(err, sol.ErrTransactionFailed) {
			signed = nil
		}
		return err
	})
	return sig, err
}

// runBatch runs one unit of work with retries. A confirmation timeout is not
// retried since the transaction may still land.
func (c *cycle) runBatch(ctx context.Context, kind string, index int, fn func() error) error {
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, sol.ErrConfirmTimeout) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.BatchRetries)), ctx)
	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		c.log.Warn("batch attempt failed",
			zap.String("kind", kind),
			zap.Int("batch", index),
			zap.Duration("retry_in", next),
			zap.Error(err))
	})
	if err != nil {
		c.report.FailedBatches++
		c.log.Error("batch skipped",
			zap.String("kind", kind),
			zap.Int("batch", index),
			zap.Error(err))
	}
	return err
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
