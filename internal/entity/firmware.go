// Package entity ...
package entity

import "time"

// FirmwareInfo информация о версии прошивки.
// После регистрации в каталоге не изменяется, перезаписывается только
// повторной регистрацией той же версии
type FirmwareInfo struct {
	Version     string    `json:"version,omitempty"`
	Info        string    `json:"info,omitempty"`
	ReleaseTime time.Time `json:"releaseTime,omitempty"`
	FileSize    int64     `json:"fileSize,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	ForceUpdate bool      `json:"forceUpdate,omitempty"`
	DeviceTypes []string  `json:"deviceTypes,omitempty"`
}

// VerificationResult результат проверки целостности прошивки.
// Ошибки накапливаются, проверка не прерывается на первой проблеме
type VerificationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
