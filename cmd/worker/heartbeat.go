package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Heartbeater records worker liveness
type Heartbeater interface {
	Heartbeat(ctx context.Context, workerID string, inFlight int) error
	RemoveWorker(ctx context.Context, workerID string) error
}

// runHeartbeat reports the worker as alive every interval until ctx is done,
// then removes its entry
func runHeartbeat(ctx context.Context, hb Heartbeater, proc *processor, interval time.Duration, logger zerolog.Logger) {
	beat := func() {
		if err := hb.Heartbeat(ctx, proc.workerID, proc.InFlight()); err != nil {
			logger.Warn().Err(err).Msg("Failed to send heartbeat")
		}
	}

	beat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := hb.RemoveWorker(context.WithoutCancel(ctx), proc.workerID); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove heartbeat")
			}
			return
		case <-ticker.C:
			beat()
		}
	}
}
