package broadcast

import "context"

// Fanout publishes to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, eventType string, payload any) bool {
	delivered := false
	for _, p := range f {
		if p == nil {
			continue
		}
		if p.Publish(ctx, eventType, payload) {
			delivered = true
		}
	}
	return delivered
}
