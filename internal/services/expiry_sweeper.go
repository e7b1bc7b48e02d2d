package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically expires pending donations whose expiry date
// has passed.
type ExpirySweeper struct {
	donations *DonationService
	log       *zap.Logger
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewExpirySweeper(donations *DonationService, logger *zap.Logger, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		donations: donations,
		log:       logger,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

func (w *ExpirySweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("expiry sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker and waits for the current sweep to finish.
func (w *ExpirySweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("expiry sweeper stopped")
	})
}

func (w *ExpirySweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.donations.ExpireOverdue(ctx)
	if err != nil {
		w.log.Error("failed to expire overdue donations", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("expired overdue donations", zap.Int64("count", count))
	}
}
