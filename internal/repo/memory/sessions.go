// Package memory Хранилище сессий обновления в памяти.
// Используется при отсутствии БД и в тестах
package memory

import (
	"context"
	"sync"

	"github.com/n-r-w/otasrv/internal/entity"
)

type Repo struct {
	mutex    sync.RWMutex
	sessions map[string]entity.UpdateSession
}

func NewRepo() *Repo {
	return &Repo{
		sessions: map[string]entity.UpdateSession{},
	}
}

// Get получить сессию устройства
func (r *Repo) Get(deviceID string, _ context.Context) (entity.UpdateSession, bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, ok := r.sessions[deviceID]
	return session, ok, nil
}

// Put сохранить сессию
func (r *Repo) Put(session entity.UpdateSession, _ context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sessions[session.DeviceID] = session
	return nil
}

// PutIf сохранить сессию, только если ее текущий статус равен expect
func (r *Repo) PutIf(session entity.UpdateSession, expect entity.UpdateStatus, _ context.Context) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, ok := r.sessions[session.DeviceID]
	if !ok || current.Status != expect {
		return false, nil
	}

	r.sessions[session.DeviceID] = session
	return true, nil
}

// Delete удалить сессию
func (r *Repo) Delete(deviceID string, _ context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.sessions, deviceID)
	return nil
}
