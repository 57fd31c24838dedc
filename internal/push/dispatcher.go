// Package push fans notifications out to every registered Web Push
// subscription and prunes endpoints the push service reports as gone.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Joseda-hg/lazyday/internal/metrics"
	"github.com/Joseda-hg/lazyday/internal/model"
)

const maxConcurrentDeliveries = 8

// Result summarizes one broadcast.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

type Dispatcher struct {
	subs      *Subscriptions
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(subs *Subscriptions, transport Transport, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{subs: subs, transport: transport, logger: logger, metrics: m}
}

func (d *Dispatcher) Subscriptions() *Subscriptions {
	return d.subs
}

func (d *Dispatcher) SubscriberCount() (int, error) {
	return d.subs.Count()
}

// Broadcast delivers n to every subscription. Delivery failures are
// per-subscription and never abort the broadcast; only gone endpoints
// change state, and they are removed after every delivery has finished.
func (d *Dispatcher) Broadcast(ctx context.Context, n model.Notification) (Result, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return Result{}, fmt.Errorf("encode notification: %w", err)
	}

	subs, err := d.subs.List()
	if err != nil {
		return Result{}, fmt.Errorf("load subscriptions: %w", err)
	}

	outcomes := make([]error, len(subs))
	var group errgroup.Group
	group.SetLimit(maxConcurrentDeliveries)
	for i, sub := range subs {
		group.Go(func() error {
			outcomes[i] = d.transport.Send(ctx, sub, payload)
			return nil
		})
	}
	_ = group.Wait()

	var result Result
	var gone []string
	for i, sendErr := range outcomes {
		switch {
		case sendErr == nil:
			result.Sent++
			d.metrics.Delivery("sent")
		case IsGone(sendErr):
			result.Failed++
			gone = append(gone, subs[i].Endpoint)
			d.metrics.Delivery("gone")
			d.logger.Info("push endpoint gone, removing subscription", "endpoint", subs[i].Endpoint, "error", sendErr)
		default:
			result.Failed++
			d.metrics.Delivery("failed")
			d.logger.Warn("push delivery failed", "endpoint", subs[i].Endpoint, "tag", n.Tag, "error", sendErr)
		}
	}

	if len(gone) > 0 {
		removed, err := d.subs.Remove(gone...)
		if err != nil {
			return result, fmt.Errorf("prune subscriptions: %w", err)
		}
		result.Removed = removed
		d.metrics.Pruned(removed)
	}

	d.logger.Debug("broadcast finished", "tag", n.Tag, "sent", result.Sent, "failed", result.Failed, "removed", result.Removed)
	return result, nil
}
