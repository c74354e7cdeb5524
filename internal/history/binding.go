package history

import (
	"context"

	"github.com/rcliao/mealtrack/internal/session"
)

// HandleSessionEvent keeps the active namespace in step with the session.
func (c *Cache) HandleSessionEvent(ctx context.Context, ev session.Event) error {
	switch ev.Kind {
	case session.EventActivate:
		if !ev.Identity.HasEmail() {
			c.EvictNamespace()
			return nil
		}
		return c.LoadNamespace(ctx, ev.Identity.Email)
	case session.EventDeactivate:
		c.EvictNamespace()
	}
	return nil
}
