package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/microtemp-integration/internal/pkg/config"
	"github.com/anicoll/microtemp-integration/internal/pkg/database"
	"github.com/anicoll/microtemp-integration/internal/pkg/database/migration"
	"github.com/anicoll/microtemp-integration/internal/pkg/gateway"
	"github.com/anicoll/microtemp-integration/internal/pkg/microtemp"
	"github.com/anicoll/microtemp-integration/internal/pkg/mqtt"
	"github.com/anicoll/microtemp-integration/internal/pkg/publisher"
	"github.com/anicoll/microtemp-integration/internal/pkg/registry"
	"github.com/anicoll/microtemp-integration/internal/pkg/server"
)

func GatewayCommand(ctx *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// CLI flags win over the environment when set.
	if v := ctx.String("microtemp-username"); v != "" {
		cfg.Microtemp.Username = v
	}
	if v := ctx.String("microtemp-password"); v != "" {
		cfg.Microtemp.Password = v
	}
	if v := ctx.String("microtemp-base-url"); v != "" {
		cfg.Microtemp.BaseURL = v
	}
	if v := ctx.String("mqtt-host"); v != "" {
		cfg.Mqtt.Host = v
	}
	if v := ctx.Int("mqtt-port"); v != 0 {
		cfg.Mqtt.Port = v
	}
	if v := ctx.String("mqtt-user"); v != "" {
		cfg.Mqtt.Username = v
	}
	if v := ctx.String("mqtt-pass"); v != "" {
		cfg.Mqtt.Password = v
	}
	if v := ctx.String("discovery-prefix"); v != "" {
		cfg.Mqtt.DiscoveryPrefix = v
	}
	if v := ctx.String("database-url"); v != "" {
		cfg.Database.URL = v
	}
	if v := ctx.String("migrations-folder"); v != "" {
		cfg.Database.MigrationsFolder = v
	}
	if v := ctx.Duration("reconcile-interval"); v != 0 {
		cfg.ReconcileInterval = v
	}
	if v := ctx.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	eg, ctx := errgroup.WithContext(ctx)

	logCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	var db *database.Database
	if cfg.Database.URL != "" {
		if err := migration.Migrate(cfg.Database.URL, cfg.Database.MigrationsFolder); err != nil {
			return err
		}
		conn, err := pgx.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)
		db = database.NewDatabase(conn)

		if err := publisher.RegisterPublisher("postgres", db); err != nil {
			return err
		}
	}

	vendor := microtemp.NewClient(cfg.Microtemp)
	gw := gateway.New(vendor, registry.New(), cfg.ReconcileInterval)

	mqttSvc := mqtt.New(paho_mqtt.NewClient(mqtt.NewClientOptions(cfg.Mqtt)), cfg.Mqtt.DiscoveryPrefix, gw.HandleCommand)
	if err := mqttSvc.Connect(); err != nil {
		return err
	}
	if err := publisher.RegisterPublisher("mqtt", mqttSvc); err != nil {
		return err
	}

	if err := vendor.Authenticate(ctx); err != nil {
		return err
	}
	if err := gw.Bootstrap(ctx); err != nil {
		return err
	}

	feed := microtemp.NewFeedManager(vendor, cfg.Microtemp.FeedTimeout, gw.HandleFeedMessage)

	eg.Go(func() error {
		return feed.Run(ctx)
	})

	eg.Go(func() error {
		return gw.Reconcile(ctx)
	})

	eg.Go(func() error {
		return runCron(ctx, cfg, gw, db)
	})

	eg.Go(func() error {
		srv := &http.Server{
			Handler:      server.New(gw).Handler(),
			Addr:         cfg.StatusAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return eg.Wait()
}

type refresher interface {
	Refresh(ctx context.Context)
}

// runCron drives the periodic full refresh and, when the database sink is
// enabled, the nightly history cleanup.
func runCron(ctx context.Context, cfg *config.Config, gw refresher, db *database.Database) error {
	c := cron.New()
	if _, err := c.AddFunc(cfg.RefreshSchedule, func() {
		gw.Refresh(ctx)
	}); err != nil {
		return err
	}

	if db != nil {
		if err := db.Cleanup(ctx); err != nil {
			return err
		}
		if _, err := c.AddFunc("0 3 * * *", func() {
			if err := db.Cleanup(ctx); err != nil {
				zap.L().Error("error cleaning up database", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
