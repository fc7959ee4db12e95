package monitor

import (
	"context"
	"errors"

	"github.com/couchcryptid/station-monitor/internal/domain"
)

// Publisher receives state changes. Implementations must not block the caller
// for longer than a local hand-off.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// FanOut delivers each event to every publisher in order. A failing publisher
// does not prevent delivery to the rest.
type FanOut []Publisher

func (f FanOut) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev domain.Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev domain.Event) error { return f(ctx, ev) }

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, domain.Event) error { return nil }
