package negotiation

import (
	"context"

	"github.com/jdupreez/veemark-gateway/pkg/logger"
)

// LogNotifier records outbid events on the structured log. The real-time
// fan-out (push, websocket) subscribes to these lines downstream.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a notifier that writes outbid events to logg.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) NotifyOutbid(ctx context.Context, event OutbidEvent) {
	if n.logg == nil {
		return
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"listing_id":         event.ListingID.String(),
		"previous_bid_minor": event.PreviousBidMinor,
		"new_bid_minor":      event.NewBidMinor,
	})
	n.logg.Info(ctx, "bidder outbid")
}
