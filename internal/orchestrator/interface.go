// Package orchestrator ...
package orchestrator

import (
	"context"
	"time"

	"github.com/n-r-w/otasrv/internal/entity"
)

// SessionInterface хранилище сессий обновления. Реализации обязаны быть
// безопасными для конкурентного использования и возвращать копии
type SessionInterface interface {
	// Получить сессию устройства
	Get(deviceID string, ctx context.Context) (entity.UpdateSession, bool, error)
	// Сохранить сессию (вставка или замена)
	Put(session entity.UpdateSession, ctx context.Context) error
	// Сохранить сессию, только если ее текущий статус равен expect.
	// Сравнение и запись атомарны относительно других мутаций
	PutIf(session entity.UpdateSession, expect entity.UpdateStatus, ctx context.Context) (bool, error)
	// Удалить сессию
	Delete(deviceID string, ctx context.Context) error
}

// CatalogInterface каталог версий прошивок
type CatalogInterface interface {
	// Нужно ли обновление с версии current до target (или до последней при пустом target)
	NeedsUpdate(current string, target string) (bool, *entity.FirmwareInfo)
	// Информация о версии
	Version(id string) (entity.FirmwareInfo, bool)
}

// DownloadInterface скачивание прошивки
type DownloadInterface interface {
	Download(url string, timeout time.Duration, onProgress entity.ProgressFunc, ctx context.Context) ([]byte, error)
}

// VerifyInterface проверка целостности прошивки
type VerifyInterface interface {
	VerifyIntegrity(data []byte, info *entity.FirmwareInfo) entity.VerificationResult
}
