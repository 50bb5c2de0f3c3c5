//go:build wireinject
// +build wireinject

// Package di. Автоматическое внедрение зависимостей
package di

import (
	"github.com/google/wire"
	"github.com/n-r-w/httprouter"
	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/catalog"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/downloader"
	"github.com/n-r-w/otasrv/internal/orchestrator"
	"github.com/n-r-w/otasrv/internal/presenter"
	"github.com/n-r-w/otasrv/internal/repo/psql"
	"github.com/n-r-w/otasrv/internal/verifier"
	"github.com/n-r-w/postgres"
)

type Container struct {
	Logger       lg.Logger
	Config       *config.Config
	DB           *postgres.Service
	Repo         *psql.Repo
	Catalog      *catalog.Catalog
	Verifier     *verifier.Verifier
	Downloader   *downloader.Downloader
	Orchestrator *orchestrator.Service
	Router       *httprouter.Service
	Presenter    *presenter.Presenter
}

// NewContainer - создание DI контейнера с помощью google wire
func NewContainer(logger lg.Logger, config *config.Config, dbUrl postgres.Url, dbOptions []postgres.Option) (*Container, func(), error) {
	panic(wire.Build(
		postgres.New,

		wire.Bind(new(orchestrator.SessionInterface), new(*psql.Repo)),
		wire.Bind(new(presenter.VersionStoreInterface), new(*psql.Repo)),
		psql.NewRepo,

		wire.Bind(new(orchestrator.CatalogInterface), new(*catalog.Catalog)),
		wire.Bind(new(presenter.CatalogInterface), new(*catalog.Catalog)),
		catalog.New,

		wire.Bind(new(orchestrator.VerifyInterface), new(*verifier.Verifier)),
		verifier.New,

		wire.Bind(new(orchestrator.DownloadInterface), new(*downloader.Downloader)),
		downloader.New,

		orchestrator.New,

		wire.Bind(new(presenter.UpdateInterface), new(*orchestrator.Service)),

		wire.Bind(new(httprouter.Router), new(*httprouter.Service)),
		httprouter.New,

		presenter.New,

		wire.Struct(new(Container), "*"),
	))
}
