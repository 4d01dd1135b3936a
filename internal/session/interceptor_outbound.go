package session

import (
	"context"

	"github.com/rs/zerolog"
)

// outbound runs before a request leaves the process. It renews the access
// token and never blocks or alters the request itself.
type outbound struct {
	refresher Refresher
	store     *Store
	escape    *Escape
	enabled   bool
	logger    zerolog.Logger
}

func (o *outbound) before(ctx context.Context) {
	if !o.enabled {
		return
	}
	if err := o.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			o.logger.Debug().Err(err).Msg("Proactive refresh abandoned by caller")
			return
		}
		if invalidate(o.store, o.escape) {
			o.logger.Warn().Err(err).Msg("Proactive refresh failed, session cleared")
			return
		}
		o.logger.Debug().Err(err).Msg("Proactive refresh failed without a session")
	}
}
