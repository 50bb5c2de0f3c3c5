// Package presenter ...
package presenter

import (
	"context"

	"github.com/n-r-w/otasrv/internal/entity"
)

// UpdateInterface операции над сессиями обновления устройств
type UpdateInterface interface {
	// Проверить наличие обновления для устройства
	CheckForUpdate(deviceID string, currentVersion string, ctx context.Context) (*entity.FirmwareInfo, bool, error)
	// Скачать и проверить прошивку указанной версии
	DownloadFirmware(deviceID string, info *entity.FirmwareInfo, ctx context.Context) ([]byte, error)
	// Проверка и скачивание одним вызовом
	PerformUpdate(deviceID string, currentVersion string, ctx context.Context) ([]byte, *entity.FirmwareInfo, error)
	// Снимок сессии устройства. nil, если устройство не проверялось
	Status(deviceID string, ctx context.Context) (*entity.UpdateSession, error)
	// Отменить обновление (действует только во время скачивания)
	Cancel(deviceID string, ctx context.Context) error
	// Удалить сессию устройства
	Clear(deviceID string, ctx context.Context) error
}

// CatalogInterface каталог версий прошивок
type CatalogInterface interface {
	// Зарегистрировать версию (идемпотентный upsert)
	Register(info entity.FirmwareInfo)
	// Информация о версии
	Version(id string) (entity.FirmwareInfo, bool)
	// Все версии строго больше указанной
	Upgradeable(current string) []entity.FirmwareInfo
	// Проверка структуры идентификатора версии
	IsValid(version string) bool
}

// VersionStoreInterface долговременное хранилище версий для прогрева каталога
type VersionStoreInterface interface {
	SaveVersion(info *entity.FirmwareInfo, ctx context.Context) error
}
