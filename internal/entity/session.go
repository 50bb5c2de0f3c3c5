package entity

import "time"

// UpdateStatus состояние сессии обновления
type UpdateStatus string

const (
	StatusIdle        = UpdateStatus("idle")
	StatusChecking    = UpdateStatus("checking")
	StatusDownloading = UpdateStatus("downloading")
	StatusVerifying   = UpdateStatus("verifying")
	StatusInstalling  = UpdateStatus("installing") // зарезервировано, установка выполняется внешней подсистемой
	StatusCompleted   = UpdateStatus("completed")
	StatusFailed      = UpdateStatus("failed")
)

// Terminal сессия в конечном состоянии
func (s UpdateStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// UpdateSession сессия обновления устройства. Одна на устройство,
// создается при первой проверке обновления и живет до явного удаления
type UpdateSession struct {
	DeviceID       string       `json:"deviceId,omitempty"`
	CurrentVersion string       `json:"currentVersion,omitempty"`
	TargetVersion  string       `json:"targetVersion,omitempty"`
	Status         UpdateStatus `json:"status,omitempty"`
	Progress       int          `json:"progress"`
	Error          string       `json:"error,omitempty"`
	StartTime      time.Time    `json:"startTime,omitempty"`
	EndTime        time.Time    `json:"endTime,omitempty"`
}

// DownloadProgress прогресс скачивания. Не сохраняется, используется
// только как полезная нагрузка колбэка
type DownloadProgress struct {
	Downloaded int64 `json:"downloaded"`
	Total      int64 `json:"total"`
	Percentage int   `json:"percentage"`
}

// ProgressFunc колбэк прогресса скачивания
type ProgressFunc func(progress DownloadProgress)
