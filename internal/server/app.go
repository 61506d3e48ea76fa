// Package server wires the voucher-auth service together: storage, the
// credential primitives, outbound email and audit transports, the user
// service and its HTTP and gRPC endpoints. It also owns graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/dmitrijs2005/voucher-auth/internal/cryptox"
	"github.com/dmitrijs2005/voucher-auth/internal/logging"
	"github.com/dmitrijs2005/voucher-auth/internal/server/audit"
	"github.com/dmitrijs2005/voucher-auth/internal/server/awsx"
	"github.com/dmitrijs2005/voucher-auth/internal/server/config"
	"github.com/dmitrijs2005/voucher-auth/internal/server/httpapi"
	"github.com/dmitrijs2005/voucher-auth/internal/server/notify"
	"github.com/dmitrijs2005/voucher-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voucher-auth/internal/server/services"
	"github.com/dmitrijs2005/voucher-auth/internal/server/validation"

	gs "github.com/dmitrijs2005/voucher-auth/internal/server/grpc"
)

const (
	dbConnectAttempts = 5
	dbConnectBackoff  = 2 * time.Second
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	emitter     *audit.Emitter
	handler     *httpapi.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN, repomanager.PoolOptions{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}, dbConnectAttempts, dbConnectBackoff)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	codec, err := cryptox.NewTokenCodec(c.TokenCodecKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token codec init error: %w", err)
	}

	awsCfg, err := awsx.LoadConfig(ctx, awsx.Options{
		Region:       c.AWSRegion,
		AccessKey:    c.AWSAccessKey,
		SecretKey:    c.AWSSecretKey,
		BaseEndpoint: c.AWSBaseEndpoint,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	notifier := notify.NewEmailNotifier(codec, emailSender(awsCfg, c, logger), c.FrontendURL, logger)

	emitter := audit.NewEmitter(auditSender(awsCfg, c, logger), c.AuditBufferSize, c.AuditSendTimeout, logger)

	us := services.NewUserService(db, rm, cryptox.NewBcryptHasher(c.BcryptCost), codec, notifier, logger,
		services.WithEmailTimeout(c.EmailSendTimeout))

	strategy := validation.NewUserValidationStrategy(rm.Users(db), logger)

	h := httpapi.NewHandler(us, strategy, emitter, db, logger, httpapi.Options{
		Paging: httpapi.PageOptions{
			DefaultSize: c.DefaultPageSize,
			MaxSize:     c.MaxPageSize,
		},
		HardenedLoginErrors: c.HardenedLoginErrors,
	})

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		emitter:     emitter,
		handler:     h,
	}, nil
}

// emailSender sends through SES when a sender address is configured and
// logs messages otherwise.
func emailSender(cfg aws.Config, c *config.Config, l logging.Logger) notify.Sender {
	if c.EmailFrom == "" {
		return notify.NewLogSender(l)
	}
	return notify.NewSESSender(cfg, c.EmailFrom)
}

// auditSender posts to SQS when a queue is configured and logs records
// otherwise.
func auditSender(cfg aws.Config, c *config.Config, l logging.Logger) audit.Sender {
	if c.AuditQueueURL == "" {
		return audit.NewLogSender(l)
	}
	return audit.NewSQSSender(cfg, c.AuditQueueURL)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.config.ShutdownTimeout, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.db, 0, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives or a server fails, then drains pending
// emails and audit records and closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.emitter.Start()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.shutdown()
}

func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	app.userService.Wait()

	if err := app.emitter.Close(ctx); err != nil {
		app.logger.Warn(ctx, "audit emitter did not drain", "error", err, "dropped", app.emitter.Dropped())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
