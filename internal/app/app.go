package app

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/contentselect/internal/audit"
	"github.com/yungbote/contentselect/internal/binder"
	"github.com/yungbote/contentselect/internal/catalog"
	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/db"
	"github.com/yungbote/contentselect/internal/handlers"
	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/repos"
	"github.com/yungbote/contentselect/internal/selection"
	"github.com/yungbote/contentselect/internal/server"
	"github.com/yungbote/contentselect/internal/utils"
)

type App struct {
	Log     *logger.Logger
	Cfg     *config.Config
	Clock   *clock.Clock
	Catalog *catalog.Catalog
	Service *selection.Service
	Router  *gin.Engine

	dbSink *audit.DBSink
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	clockMode := utils.GetEnv("CS_CLOCK_MODE", string(clock.ModeReal), log)
	clk, err := clock.New(clock.Mode(clockMode))
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init clock: %w", err)
	}

	cat := catalog.New()

	// Audit database is optional: without one the engine runs with a
	// no-op sink and the trail endpoints stay unwired.
	var sink audit.Sink = audit.NopSink{}
	var dbSink *audit.DBSink
	var auditHandler *handlers.AuditHandler
	if utils.GetEnvAsBool("CS_AUDIT_DB", true, log) {
		pg, err := db.NewPostgresService(log)
		if err != nil {
			log.Warn("Audit database unavailable, auditing disabled", "error", err)
		} else if err := pg.AutoMigrateAll(); err != nil {
			log.Warn("Audit migration failed, auditing disabled", "error", err)
		} else {
			repo := repos.NewAuditRepo(pg.DB(), log)
			dbSink = audit.NewDBSink(repo, utils.GetEnvAsInt("CS_AUDIT_BUFFER", 4096, log), log)
			sink = dbSink
			auditHandler = handlers.NewAuditHandler(log, repo)
		}
	}

	var mirror binder.Mirror
	if addr := utils.GetEnv("REDIS_ADDR", "", log); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		})
		ttl := time.Duration(utils.GetEnvAsInt("CS_BINDER_MIRROR_TTL", 14*24*3600, log)) * time.Second
		mirror = binder.NewRedisMirror(rdb, ttl, log)
		log.Info("Binder mirror enabled", "addr", addr)
	}
	bind := binder.New(cfg.BinderCapacity, mirror, log)

	svc, err := selection.NewService(cfg, clk, cat, bind, sink, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init selection service: %w", err)
	}

	router := server.NewRouter(server.RouterConfig{
		CatalogHandler: handlers.NewCatalogHandler(log, cat),
		UpdateHandler:  handlers.NewUpdateHandler(log, svc),
		ClockHandler:   handlers.NewClockHandler(log, clk),
		AuditHandler:   auditHandler,
	})

	return &App{
		Log:     log,
		Cfg:     cfg,
		Clock:   clk,
		Catalog: cat,
		Service: svc,
		Router:  router,
		dbSink:  dbSink,
	}, nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.dbSink != nil {
		a.dbSink.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
