package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Startup runs one-time initialization after DB connections and schema
// setup, before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.DBTimeoutShort,
		Medium: appCfg.DBTimeoutMedium,
		Long:   appCfg.DBTimeoutLong,
	})

	logger.Info("starting",
		zap.String("env", coreCfg.Env),
		zap.Duration("phone_code_expiry", appCfg.PhoneCodeExpiry))
	return nil
}
