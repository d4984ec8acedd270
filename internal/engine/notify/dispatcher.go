package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"attendr/internal/pkg/metrics"
)

// Result lists which recipients were reached.
type Result struct {
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
	Total   int      `json:"total"`
}

type Dispatcher struct {
	sender      Sender
	institution string
	timeout     time.Duration
}

func NewDispatcher(sender Sender, institution string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sender: sender, institution: institution, timeout: timeout}
}

// Notify sends the event to every recipient concurrently and waits for all
// deliveries. Failures are logged and reported in the result, never returned.
func (d *Dispatcher) Notify(ctx context.Context, e Event, recipients []string) Result {
	res := Result{Success: []string{}, Failed: []string{}, Total: len(recipients)}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, to := range recipients {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			err := d.deliver(ctx, e, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Err(err).Str("to", to).Str("sender", d.sender.Name()).Msg("notification failed")
				metrics.NotificationsSent.WithLabelValues(string(e.Kind), "failed").Inc()
				res.Failed = append(res.Failed, to)
				return
			}
			metrics.NotificationsSent.WithLabelValues(string(e.Kind), "sent").Inc()
			res.Success = append(res.Success, to)
		}(to)
	}
	wg.Wait()

	return res
}

func (d *Dispatcher) deliver(ctx context.Context, e Event, to string) error {
	msg, err := BuildMessage(e, to, d.institution)
	if err != nil {
		return err
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.sender.Send(ctx, msg)
}
