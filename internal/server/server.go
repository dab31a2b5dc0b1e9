// Package server boots the process: config, stores, the realtime router,
// then the HTTP and gRPC listeners, and tears them down on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/farmdirect/farmdirect/app/controllers"
	"github.com/farmdirect/farmdirect/app/repositories"
	"github.com/farmdirect/farmdirect/app/routes"
	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/internal/kernel"
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/cache"
	"github.com/farmdirect/farmdirect/pkg/database"
	"github.com/farmdirect/farmdirect/pkg/geo"
	"github.com/farmdirect/farmdirect/pkg/grpc"
	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/realtime"
	"github.com/farmdirect/farmdirect/pkg/schedule"
	"github.com/farmdirect/farmdirect/pkg/storage"
	"github.com/farmdirect/farmdirect/pkg/workerpool"
	"github.com/farmdirect/farmdirect/pkg/ws"
)

// App is the wired application graph.
type App struct {
	API      routes.API
	Realtime *realtime.Router
	pool     *workerpool.Pool
	receipts func()
}

// Wire builds the application graph over an open database. It does not
// start any listener.
func Wire() (*App, error) {
	db := database.DB
	users := repositories.NewUserRepository(db)

	rt := realtime.NewRouter(verifyToken, users, realtime.Options{})

	pool := workerpool.New(config.GeoJoinWorkers())
	engine := geo.NewEngine(repositories.NewProductGeoStore(db), pool, geo.Config{
		DefaultRadiusKm:     config.GeoDefaultRadiusKm(),
		MaxProviders:        config.GeoMaxProviders(),
		MaxItemsPerProvider: config.GeoMaxItemsPerProvider(),
	})

	authSvc := services.NewAuthService(users)
	chatSvc := services.NewChatService(repositories.NewChatRepository(db), rt)
	sub := chatSvc.WatchReceipts(rt)

	search := services.NewSearchService(engine, config.SearchCacheTTL())
	gql, err := controllers.NewGraphQLController(search, rt)
	if err != nil {
		rt.Unsubscribe(sub)
		pool.Shutdown()
		return nil, fmt.Errorf("server: graphql schema: %w", err)
	}

	return &App{
		API: routes.API{
			Geo:      controllers.NewGeoController(search, engine.Config().DefaultRadiusKm),
			Orders:   controllers.NewOrderController(services.NewOrderService(repositories.NewOrderRepository(db), rt), authSvc),
			Chats:    controllers.NewChatController(chatSvc, authSvc),
			Auth:     controllers.NewAuthController(authSvc),
			Presence: controllers.NewPresenceController(rt),
			GraphQL:  gql,
			Realtime: rt,
			Health:   database.Ping,
		},
		Realtime: rt,
		pool:     pool,
		receipts: func() { rt.Unsubscribe(sub) },
	}, nil
}

// Close releases what Wire started.
func (a *App) Close() {
	a.receipts()
	a.pool.Shutdown()
}

// verifyToken adapts JWT validation to the socket handshake.
func verifyToken(token string) (string, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Start runs the server until a shutdown signal arrives.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	if uri := config.LogMongoURI(); uri != "" {
		closeSink, err := logger.EnableMongoSink(uri, config.MongoDatabase())
		if err != nil {
			logger.Warn("server: mongo log sink disabled", "error", err)
		} else {
			defer closeSink()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = database.Disconnect(dctx)
	}()

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("server: redis unavailable, search cache disabled", "error", err)
	}
	defer cache.Close()

	app, err := Wire()
	if err != nil {
		return err
	}
	defer app.Close()

	var origins []string
	for _, o := range strings.Split(config.CORSOrigin(), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) > 0 {
		ws.SetCheckOrigin(ws.AllowOrigins(origins...))
	}

	sched, err := scheduleJobs(ctx)
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Wait()

	httpKernel := kernel.NewHTTPKernel(app.API.Register)
	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           httpKernel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if port := config.GRPCPort(); port != "" {
		grpcSrv, err := grpc.Start(port, database.Ping)
		if err != nil {
			return err
		}
		defer grpc.Stop(grpcSrv)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// scheduleJobs registers the in-process recurring jobs.
func scheduleJobs(ctx context.Context) (*schedule.Scheduler, error) {
	s := schedule.New()

	if expr := config.BackupSchedule(); expr != "" {
		disk, err := storage.Open(ctx, config.StorageDefault())
		if err != nil {
			return nil, err
		}
		backups := services.NewBackupService(repositories.NewDumper(database.DB), disk, services.BackupPolicy{
			Prefix:    config.BackupPrefix(),
			Retention: config.BackupRetention(),
			MaxCount:  config.BackupMaxCount(),
		})
		err = s.Cron(expr, "backup", func(ctx context.Context) error {
			report, err := backups.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("server: backup written", "stamp", report.Stamp, "pruned", len(report.Pruned))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
