package rpc

import (
	"context"
	"time"
)

// SubscribeClock streams a TickEvent every tick_period_millis until ctx is
// canceled, mirroring the original implementation's stream::repeat(()).throttle(period)
// pipeline. The returned channel is closed once ctx is done.
func (Greeter) SubscribeClock(ctx context.Context, req ClockRequest) <-chan TickEvent {
	period := time.Duration(req.TickPeriodMillis) * time.Millisecond
	if period <= 0 {
		period = time.Second
	}
	ch := make(chan TickEvent)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				event := TickEvent{CurrentTimeMillis: uint64(t.UnixMilli())}
				select {
				case ch <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}
