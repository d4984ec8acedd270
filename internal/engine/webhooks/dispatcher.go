package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"attendr/internal/pkg/metrics"
)

type Event struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Dispatcher posts attendance events to a fixed set of endpoints. Delivery
// is best effort: one attempt per endpoint, failures are logged and counted.
type Dispatcher struct {
	urls   []string
	secret string
	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewDispatcher(urls []string, secret string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		urls:   urls,
		secret: secret,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Publish delivers the event to every endpoint in the background.
func (d *Dispatcher) Publish(eventType string, data interface{}) {
	if len(d.urls) == 0 {
		return
	}

	event := &Event{
		ID:        "evt_" + uuid.New().String(),
		Event:     eventType,
		Timestamp: d.now().Unix(),
		Data:      data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to encode webhook event")
		return
	}

	for _, url := range d.urls {
		d.wg.Add(1)
		go func(url string) {
			defer d.wg.Done()
			if err := d.deliver(url, event, payload); err != nil {
				metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
				log.Warn().Err(err).Str("url", url).Str("event", event.Event).Msg("webhook delivery failed")
				return
			}
			metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
		}(url)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(url string, event *Event, payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event.Event)
	req.Header.Set(HeaderDelivery, event.ID)
	if d.secret != "" {
		req.Header.Set(HeaderSignature, Sign(d.secret, payload, d.now()))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
