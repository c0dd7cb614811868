// Binary pos-server serves the order settlement and fulfillment API.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	pos "github.com/josephbruno/v11pos/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, t *app.Telemetry) error {
		cfg, err := pos.LoadConfig()
		if err != nil {
			return err
		}
		lg.Info("starting pos-server", zap.String("addr", cfg.Addr))
		return pos.Run(ctx, lg, t, cfg)
	})
}
