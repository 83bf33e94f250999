package service

import (
	"context"
	"time"
)

// Задержки повторяют мок-API фронтенда; включаются через SIMULATED_LATENCY.
const (
	delayLogin   = 800 * time.Millisecond
	delayList    = 600 * time.Millisecond
	delayCreate  = 800 * time.Millisecond
	delayDetails = 600 * time.Millisecond
	delayMessage = 300 * time.Millisecond
	delayClose   = 500 * time.Millisecond
)

func (s *TicketService) delay(ctx context.Context, d time.Duration) error {
	if !s.latency {
		return nil
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
