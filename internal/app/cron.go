package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/walpay/core/internal/modules/auth/otp"
	pkgcron "github.com/walpay/core/internal/pkg/cron"
)

// registerCronJobs registers all scheduled background jobs. Mongo's TTL
// reaper already drops expired OTP documents, but only on the collections
// where the index exists; the job keeps deployments honest that predate it
// and reports what it removed.
func registerCronJobs(sched *pkgcron.Scheduler, otps *otp.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "purge_expired_otps",
		Description: "remove expired one-time passcode challenges",
		Interval:    15 * time.Minute,
		Fn: func(ctx context.Context) error {
			removed, err := otps.PurgeExpired(ctx)
			if err != nil {
				cronLogger.Warn("otp purge failed", zap.Error(err))
				return err
			}
			if removed > 0 {
				cronLogger.Info("otp purge done", zap.Int64("removed", removed))
			}
			return nil
		},
	})
}
