package psql

import (
	"context"
	"encoding/json"
	"time"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/nerr"
	"github.com/n-r-w/otasrv/internal/entity"
	"github.com/n-r-w/sqlb"
	"github.com/n-r-w/sqlq"
)

// SaveVersion сохранить зарегистрированную версию. Запись хранится целиком
// в виде json: авторитетный каталог живет в памяти, БД нужна только для
// восстановления каталога после перезапуска
func (p *Repo) SaveVersion(info *entity.FirmwareInfo, ctx context.Context) error {
	ctxChild, cancel := context.WithTimeout(ctx, time.Second*time.Duration(p.config.DbWriteTimeout))
	defer cancel()

	jsinfo, err := json.Marshal(info)
	if err != nil {
		return nerr.New(err)
	}

	values := map[string]interface{}{
		"version":      info.Version,
		"release_time": vNull(info.ReleaseTime),
		"info":         string(jsinfo),
	}

	sql, err := sqlb.Bind(
		`INSERT INTO versions(version, release_time, info) VALUES (:version, :release_time, :info)`,
		values, "InsertVersion")
	if err != nil {
		return err
	}

	err = p.exec(sql, ctxChild)
	if err == nil {
		p.logOp(ctx, lg.Info, "version saved: %s", info.Version)
		return nil
	}

	// повторная регистрация версии перезаписывает запись
	if !isUniqueViolation(err) {
		return err
	}

	sql, err = sqlb.Bind(
		`UPDATE versions SET release_time = :release_time, info = :info WHERE version = :version`,
		values, "UpdateVersion")
	if err != nil {
		return err
	}

	if err = p.exec(sql, ctxChild); err != nil {
		return err
	}

	p.logOp(ctx, lg.Info, "version saved: %s", info.Version)

	return nil
}

// LoadVersions загрузить все сохраненные версии в порядке сохранения.
// Вызывается при старте для прогрева каталога
func (p *Repo) LoadVersions(ctx context.Context) ([]entity.FirmwareInfo, error) {
	ctxChild, cancel := context.WithTimeout(ctx, time.Second*time.Duration(p.config.DbReadTimeout))
	defer cancel()

	tx := sqlq.NewTx(p.Pool, ctxChild)
	tx.Begin()
	defer tx.Rollback() // только чтение, commit не нужен

	sql := `SELECT info::text FROM versions ORDER BY id`

	q, err := sqlq.SelectTx(tx, sql)
	if err != nil {
		return nil, nerr.New(err, sql)
	}

	var res []entity.FirmwareInfo
	for q.Next() {
		var info entity.FirmwareInfo
		if err = json.Unmarshal(q.Bytes("info"), &info); err != nil {
			return nil, nerr.New(err)
		}
		res = append(res, info)
	}

	return res, nil
}
