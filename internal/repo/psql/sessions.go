package psql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/n-r-w/lg"
	"github.com/n-r-w/nerr"
	"github.com/n-r-w/otasrv/internal/entity"
	"github.com/n-r-w/sqlb"
	"github.com/n-r-w/sqlq"
)

// Get получить сессию устройства
func (p *Repo) Get(deviceID string, ctx context.Context) (entity.UpdateSession, bool, error) {
	ctxChild, cancel := context.WithTimeout(ctx, time.Second*time.Duration(p.config.DbReadTimeout))
	defer cancel()

	sql, err := sqlb.BindOne(
		`SELECT device_id, current_version, target_version, status, progress, error_message, start_time, end_time
		FROM sessions
		WHERE device_id = :device_id`,
		"device_id", deviceID,
		"GetSession")
	if err != nil {
		return entity.UpdateSession{}, false, err
	}

	q, err := sqlq.SelectRow(p.Pool, ctxChild, sql)
	if err != nil {
		return entity.UpdateSession{}, false, nerr.New(err, sql)
	}

	if q == nil {
		return entity.UpdateSession{}, false, nil
	}

	session := entity.UpdateSession{
		DeviceID:       q.String("device_id"),
		CurrentVersion: q.String("current_version"),
		TargetVersion:  q.String("target_version"),
		Status:         entity.UpdateStatus(q.String("status")),
		Progress:       q.Int("progress"),
		Error:          q.String("error_message"),
		StartTime:      q.Time("start_time"),
		EndTime:        q.Time("end_time"),
	}

	return session, true, nil
}

// Put сохранить сессию (вставка или замена)
func (p *Repo) Put(session entity.UpdateSession, ctx context.Context) error {
	ctxChild, cancel := context.WithTimeout(ctx, time.Second*time.Duration(p.config.DbWriteTimeout))
	defer cancel()

	values := sessionValues(session)

	sql, err := sqlb.Bind(
		`INSERT INTO sessions(device_id, current_version, target_version, status, progress, error_message, start_time, end_time)
		VALUES (:device_id, :current_version, :target_version, :status, :progress, :error_message, :start_time, :end_time)`,
		values, "InsertSession")
	if err != nil {
		return err
	}

	err = p.exec(sql, ctxChild)
	if err == nil {
		p.logOp(ctx, lg.Info, "session saved: %s, %s", session.DeviceID, session.Status)
		return nil
	}

	// сессия уже есть, перезаписываем
	if !isUniqueViolation(err) {
		return err
	}

	sql, err = sqlb.Bind(
		`UPDATE sessions
		SET current_version = :current_version, target_version = :target_version, status = :status,
			progress = :progress, error_message = :error_message, start_time = :start_time, end_time = :end_time
		WHERE device_id = :device_id`,
		values, "UpdateSession")
	if err != nil {
		return err
	}

	if err = p.exec(sql, ctxChild); err != nil {
		return err
	}

	p.logOp(ctx, lg.Info, "session saved: %s, %s", session.DeviceID, session.Status)

	return nil
}

// PutIf сохранить сессию, только если ее текущий статус равен expect.
// Проверка и запись выполняются в одной транзакции под блокировкой строки
func (p *Repo) PutIf(session entity.UpdateSession, expect entity.UpdateStatus, ctx context.Context) (bool, error) {
	ctxChild, cancel := context.WithTimeout(ctx, time.Second*time.Duration(p.config.DbWriteTimeout))
	defer cancel()

	tx := sqlq.NewTx(p.Pool, ctxChild)
	tx.Begin()
	defer tx.Rollback()

	sql, err := sqlb.BindOne(
		`SELECT status FROM sessions WHERE device_id = :device_id FOR UPDATE`,
		"device_id", session.DeviceID,
		"LockSession")
	if err != nil {
		return false, err
	}

	q, err := sqlq.SelectTxRow(tx, sql)
	if err != nil {
		return false, nerr.New(err, sql)
	}
	if q == nil || entity.UpdateStatus(q.String("status")) != expect {
		return false, nil
	}

	sql, err = sqlb.Bind(
		`UPDATE sessions
		SET current_version = :current_version, target_version = :target_version, status = :status,
			progress = :progress, error_message = :error_message, start_time = :start_time, end_time = :end_time
		WHERE device_id = :device_id`,
		sessionValues(session), "UpdateSessionIf")
	if err != nil {
		return false, err
	}

	if err = sqlq.ExecTx(tx, sql); err != nil {
		return false, nerr.New(err, sql)
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}

	p.logOp(ctx, lg.Info, "session saved: %s, %s", session.DeviceID, session.Status)

	return true, nil
}

// Delete удалить сессию
func (p *Repo) Delete(deviceID string, ctx context.Context) error {
	ctxChild, cancel := context.WithTimeout(ctx, time.Second*time.Duration(p.config.DbWriteTimeout))
	defer cancel()

	sql, err := sqlb.BindOne(
		`DELETE FROM sessions WHERE device_id = :device_id`,
		"device_id", deviceID,
		"DeleteSession")
	if err != nil {
		return err
	}

	if err = p.exec(sql, ctxChild); err != nil {
		return err
	}

	p.logOp(ctx, lg.Info, "session cleared: %s", deviceID)

	return nil
}

// параметры запросов записи сессии
func sessionValues(session entity.UpdateSession) map[string]interface{} {
	return map[string]interface{}{
		"device_id":       session.DeviceID,
		"current_version": session.CurrentVersion,
		"target_version":  session.TargetVersion,
		"status":          string(session.Status),
		"progress":        session.Progress,
		"error_message":   session.Error,
		"start_time":      session.StartTime,
		"end_time":        vNull(session.EndTime),
	}
}

// выполнение запроса в отдельной транзакции
func (p *Repo) exec(sql string, ctx context.Context) error {
	tx := sqlq.NewTx(p.Pool, ctx)
	tx.Begin()
	defer tx.Rollback()

	if err := sqlq.ExecTx(tx, sql); err != nil {
		return nerr.New(err, sql)
	}

	return tx.Commit()
}

// нарушение уникальности ключа
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// подготовка значения перед записью в БД
func vNull(v interface{}) interface{} {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return nil
		}
		return d
	case string:
		if d == "" {
			return nil
		}
		return d
	default:
		return v
	}
}
