package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/database"
	"github.com/shishobooks/folio/pkg/migrations"
	"github.com/shishobooks/folio/pkg/offline"
	"github.com/shishobooks/folio/pkg/render"
	"github.com/shishobooks/folio/pkg/server"
	"github.com/shishobooks/folio/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting folio", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	var storage offline.Storage
	var redisStorage *offline.RedisStorage
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		redisStorage, err = offline.NewRedisStorageFromURL(cfg.RedisURL)
		if err != nil {
			log.Err(err).Fatal("redis error")
		}
		storage = redisStorage
	default:
		storage = offline.NewSQLiteStorage(db, cfg.DatabaseMaxRetries)
	}
	log.Info("offline cache storage ready", logger.Data{"backend": cfg.CacheBackend})

	registry, err := offline.NewRegistryFromConfig(cfg, storage)
	if err != nil {
		log.Err(err).Fatal("offline cache error")
	}

	raster := render.NewPDFium(cfg.PDFRenderTimeout)

	srv, err := server.New(ctx, cfg, db, raster, registry)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	// The shell origin may not be up yet. A failed install leaves the reader
	// usable and is retried on the next start.
	go func() {
		if _, err := registry.Register(ctx, cfg.ShellCacheVersion); err != nil {
			log.Err(err).Warn("offline cache not installed", logger.Data{"version": cfg.ShellCacheVersion})
		}
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = raster.Close()
	if err != nil {
		log.Err(err).Error("pdf renderer close error")
	}

	if redisStorage != nil {
		err = redisStorage.Close()
		if err != nil {
			log.Err(err).Error("redis close error")
		}
	}

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
