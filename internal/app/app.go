// Package app ...
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n-r-w/httpserver"
	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/di"
	"github.com/n-r-w/postgres"
)

const version = "1.0.0"

func Start(cfg *config.Config, logger lg.Logger) {
	logger.Info("otasrv %s", version)

	// инициализация DI контейнера
	con, cleanup, err := di.NewContainer(logger, cfg, postgres.Url(cfg.DatabaseURL),
		[]postgres.Option{
			postgres.MaxConns(cfg.MaxDbSessions),
			postgres.MaxMaxConnIdleTime(time.Duration(cfg.MaxDbSessionIdleTime) * time.Second),
		},
	)
	if err != nil {
		logger.Err(err)
		return
	}
	defer cleanup()

	// прогреваем каталог сохраненными версиями
	if err = warmupCatalog(con, logger); err != nil {
		logger.Err(err)
		return
	}

	// запускаем http сервер
	httpServer := httpserver.New(con.Router.Handler(), logger,
		httpserver.Address(con.Config.Host, con.Config.Port),
		httpserver.ReadTimeout(time.Second*time.Duration(con.Config.HttpReadTimeout)),
		httpserver.WriteTimeout(time.Second*time.Duration(con.Config.HttpWriteTimeout)),
		httpserver.ShutdownTimeout(time.Second*time.Duration(con.Config.HttpShutdownTimeout)),
	)

	// ждем сигнал от сервера или нажатия ctrl+c
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-interrupt:
		logger.Info("shutdown, timeout %d ...", cfg.HttpShutdownTimeout)
	case err := <-httpServer.Notify():
		logger.Error("http server notification: %v", err)
	}

	// ждем завершения
	err = httpServer.Shutdown()
	if err != nil {
		logger.Error("shutdown error: %v", err)
	} else {
		logger.Info("shutdown ok")
	}
}

// загрузка зарегистрированных ранее версий из БД в каталог
func warmupCatalog(con *di.Container, logger lg.Logger) error {
	infos, err := con.Repo.LoadVersions(context.Background())
	if err != nil {
		return err
	}

	for _, info := range infos {
		con.Catalog.Register(info)
	}

	logger.Info("catalog warmed up, %d versions", len(infos))

	return nil
}
