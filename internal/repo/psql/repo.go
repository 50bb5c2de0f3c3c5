// Package psql Реализация хранилища сессий и версий для postgresql
package psql

import (
	"context"
	"fmt"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
	"github.com/n-r-w/postgres"
)

type Repo struct {
	*postgres.Service
	config *config.Config
	logger lg.Logger
}

func NewRepo(pg *postgres.Service, config *config.Config, logger lg.Logger) *Repo {
	return &Repo{
		Service: pg,
		config:  config,
		logger:  logger,
	}
}

func (p *Repo) logOp(ctx context.Context, level lg.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	ci := entity.GetClientInfoFromContext(ctx)
	if ci == nil {
		// операция не из HTTP запроса
		p.logger.Level(level, "%s", msg)
		return
	}

	if ci.RealIP == "" || ci.RealIP == ci.IP {
		p.logger.Level(level, "addr: %s, %s", ci.IP, msg)
	} else {
		p.logger.Level(level, "addr: %s(%s), %s", ci.RealIP, ci.IP, msg)
	}
}
