package sweep

import (
	"context"
	"time"

	"github.com/wardenhq/warden/internal/database/service"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"github.com/wardenhq/warden/internal/discord"
	"github.com/wardenhq/warden/internal/setup"
	"github.com/wardenhq/warden/internal/worker/core"
	"go.uber.org/zap"
)

// PlatformActions reverses temporary moderation actions on the chat platform.
type PlatformActions interface {
	Unban(ctx context.Context, guildID, userID uint64, reason string) error
	RemoveTimeout(ctx context.Context, guildID, userID uint64, reason string) error
}

// Worker lifts expired temporary actions. Each pass loads a batch of cases
// whose expiry has passed, reverses the action on the platform and marks the
// case lifted so it is never processed again.
type Worker struct {
	cases     *service.CaseService
	platform  PlatformActions
	reporter  *core.StatusReporter
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
}

// New creates a new expiration sweep worker.
func New(app *setup.App, cases *service.CaseService, platform PlatformActions, logger *zap.Logger) *Worker {
	reporter := core.NewStatusReporter(app.StatusClient, "sweep", logger)

	return &Worker{
		cases:     cases,
		platform:  platform,
		reporter:  reporter,
		logger:    logger,
		batchSize: app.Config.Worker.BatchSize,
		interval:  time.Duration(app.Config.Worker.SweepInterval) * time.Second,
	}
}

// Start begins the sweep worker's main loop. It runs until the context is
// canceled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Sweep worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	defer w.reporter.Stop()

	for {
		w.reporter.SetHealthy(true)
		w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("Sweep worker stopped")
			return
		case <-time.After(w.interval):
		}
	}
}

// RunOnce lifts one batch of expired cases.
func (w *Worker) RunOnce(ctx context.Context) {
	w.reporter.UpdateStatus("Loading expired cases", 0)

	expired, err := w.cases.GetExpiredTemporaryActions(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Error loading expired cases", zap.Error(err))
		w.reporter.SetHealthy(false)

		return
	}

	if len(expired) == 0 {
		w.reporter.UpdateStatus("Idle", 100)
		return
	}

	w.logger.Info("Processing expired cases", zap.Int("count", len(expired)))

	lifted := 0

	for i, modCase := range expired {
		if ctx.Err() != nil {
			return
		}

		w.reporter.UpdateStatus("Lifting expired cases", (i*100)/len(expired))

		if err := w.liftCase(ctx, modCase); err != nil {
			// Left unlifted; the next pass retries it
			w.logger.Error("Error lifting expired case",
				zap.Int64("caseID", modCase.ID),
				zap.Uint64("guildID", modCase.GuildID),
				zap.Int64("caseNumber", modCase.CaseNumber),
				zap.Error(err))
			w.reporter.SetHealthy(false)

			continue
		}

		lifted++
	}

	w.reporter.UpdateStatus("Completed", 100)
	w.logger.Info("Lifted expired cases",
		zap.Int("lifted", lifted),
		zap.Int("total", len(expired)))
}

// liftCase reverses one expired action and marks the case lifted. The
// platform call happens first so a crash between the two steps leaves the
// case pending rather than silently enforced.
func (w *Worker) liftCase(ctx context.Context, modCase *types.ModerationCase) error {
	reason := "Temporary action expired"

	var err error

	switch modCase.Type {
	case enum.CaseTypeBan:
		err = w.platform.Unban(ctx, modCase.GuildID, modCase.UserID, reason)
	case enum.CaseTypeMute:
		err = w.platform.RemoveTimeout(ctx, modCase.GuildID, modCase.UserID, reason)
	case enum.CaseTypeWarn, enum.CaseTypeKick, enum.CaseTypeNote:
		// Not temporary; nothing to reverse
	}

	if err != nil {
		// A missing ban or member means the restriction is already gone:
		// a moderator removed it by hand, or an earlier pass crashed
		// after reversing but before recording the lift. Record it now
		// instead of retrying the same case every pass forever.
		if !discord.IsNotFound(err) {
			return err
		}

		w.logger.Info("Restriction already gone, recording lift",
			zap.Int64("caseID", modCase.ID),
			zap.Uint64("guildID", modCase.GuildID),
			zap.Int64("caseNumber", modCase.CaseNumber))
	}

	return w.cases.MarkLifted(ctx, modCase.ID)
}
