package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LoggingHooks logs every lifecycle event on logger. Node-level events are
// logged at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnWillBuild: func(ctx context.Context, e *domain.BuildEvent) {
			logger.DebugContext(ctx, "will_build", "generation", e.Generation, "trigger", e.Trigger)
		},
		OnDidBuild: func(ctx context.Context, e *domain.BuildEvent) {
			attrs := []any{
				"generation", e.Generation,
				"trigger", e.Trigger,
				"nodes", e.Nodes,
				"duration", e.Duration,
			}
			if e.Diff != nil {
				attrs = append(attrs,
					"mounted", len(e.Diff.Mounted),
					"reused", len(e.Diff.Reused),
					"unmounted", len(e.Diff.Unmounted),
					"disposed", len(e.Diff.Disposed),
				)
			}
			logger.InfoContext(ctx, "did_build", attrs...)
		},
		OnBuildAborted: func(ctx context.Context, e *domain.BuildEvent) {
			logger.WarnContext(ctx, "build_aborted", "generation", e.Generation, "trigger", e.Trigger, "err", e.Err)
		},
		OnNodeReuse: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_reuse", "position", e.Position, "type", e.TypeName, "handle", e.Handle.String())
		},
		OnNodeDiscard: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_discard", "position", e.Position, "type", e.TypeName, "handle", e.Handle.String())
		},
		OnStateUpdate: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_update", "position", e.Position, "handle", e.Handle.String())
		},
	}
}
