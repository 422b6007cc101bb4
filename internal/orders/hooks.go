package orders

import (
	"context"

	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/notifications"
)

// Notification kinds dispatched by the post-commit hooks.
const (
	NotifyOrderCreated   = "order.created"
	NotifyOrderAdvanced  = "order.advanced"
	NotifyOrderCancelled = "order.cancelled"
	NotifyPaymentApplied = "order.payment_applied"
)

// PostCommitHook runs after a persistence operation commits. Hooks are
// best-effort: an error or panic in one hook is logged and must never
// affect the committed operation or the other hooks.
type PostCommitHook func(ctx context.Context, kind string, order *Order) error

// HookRunner executes a fixed list of post-commit hooks.
type HookRunner struct {
	hooks  []PostCommitHook
	logger *zap.Logger
}

// NewHookRunner creates a runner over the given hooks.
func NewHookRunner(logger *zap.Logger, hooks ...PostCommitHook) *HookRunner {
	return &HookRunner{hooks: hooks, logger: logger}
}

// Run invokes every hook, isolating failures.
func (h *HookRunner) Run(ctx context.Context, kind string, order *Order) {
	for i, hook := range h.hooks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					h.logger.Error("post-commit hook panicked",
						zap.Int("hook", i),
						zap.String("kind", kind),
						zap.Any("panic", rec))
				}
			}()
			if err := hook(ctx, kind, order); err != nil {
				h.logger.Warn("post-commit hook failed",
					zap.Int("hook", i),
					zap.String("kind", kind),
					zap.String("order_id", order.ID.String()),
					zap.Error(err))
			}
		}()
	}
}

// NotificationHook adapts a Notifier into a post-commit hook.
func NotificationHook(notifier notifications.Notifier) PostCommitHook {
	return func(ctx context.Context, kind string, order *Order) error {
		return notifier.Notify(ctx, kind, order.ID)
	}
}
