package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/driftline/sentry/pkg/models"
)

// Fanout delivers an alert to every wrapped dispatcher, logging but not
// failing on individual transport errors so one broken transport doesn't
// block the others.
type Fanout struct {
	dispatchers []Dispatcher
	log         zerolog.Logger
}

// Dispatcher is the interface alert.Engine dispatches against, duplicated
// here so this package does not import internal/alert.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.MarketAlert) error
}

// NewFanout builds a Fanout over ds.
func NewFanout(log zerolog.Logger, ds ...Dispatcher) *Fanout {
	return &Fanout{dispatchers: ds, log: log.With().Str("subsystem", "dispatch.fanout").Logger()}
}

// Dispatch sends alert to every wrapped dispatcher.
func (f *Fanout) Dispatch(ctx context.Context, alert models.MarketAlert) error {
	for _, d := range f.dispatchers {
		if err := d.Dispatch(ctx, alert); err != nil {
			f.log.Warn().Err(err).Str("alert_id", alert.AlertID).Msg("dispatcher failed")
		}
	}
	return nil
}
