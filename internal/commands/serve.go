package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/klabast/wb-services/waste-sensor/internal/app"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh the sensors periodically and publish them over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg, engine, err := opts.load()
			if err != nil {
				return err
			}

			sensors, err := app.NewSensors(engine, cfg.Resources)
			if err != nil {
				return err
			}
			if len(sensors) == 0 {
				log.Warn("no resources configured, no sensors will be published")
			}

			auth, err := app.LoadBasicAuth(cfg.Server.AuthFile, log)
			if err != nil {
				return err
			}

			metrics := app.NewMetrics()
			refresher := app.NewRefresher(engine, sensors, opts.clock, cfg.Server.RefreshInterval, log, metrics)
			srv := app.NewServer(refresher, auth, metrics, log)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rules := engine.Rules()
			log.Info("starting waste sensor",
				zap.String("version", Version),
				zap.Strings("resources", cfg.Resources),
				zap.Int("trash_day", rules.TrashDay),
				zap.Int("green_day", rules.GreenDay),
				zap.Stringer("green_week", rules.GreenParity),
				zap.Int("season_start", rules.SeasonStartMonth),
				zap.Int("season_end", rules.SeasonEndMonth),
				zap.Int("off_season_dates", len(rules.OffSeasonDates)))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return refresher.Run(ctx)
			})
			g.Go(func() error {
				err := app.Start(ctx, cfg.Server.ListenAddr, srv.Routes(), log)
				// stop the refresher when the server fails to start
				cancel()
				return err
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
