package presenter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/n-r-w/nerr"
	"github.com/n-r-w/otasrv/internal/entity"
)

// запрос операций над устройством
type deviceRequest struct {
	DeviceID       string `json:"deviceId"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	Version        string `json:"version,omitempty"`
}

// ответ на проверку обновления
type checkResponse struct {
	NeedsUpdate   bool                 `json:"needsUpdate"`
	LatestVersion *entity.FirmwareInfo `json:"latestVersion,omitempty"`
}

// зарегистрировать версию прошивки
func (p *Presenter) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, true); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		var info entity.FirmwareInfo
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
			p.controller.RespondError(w, http.StatusBadRequest, err)
			return
		}

		if !p.catalog.IsValid(info.Version) {
			p.controller.RespondError(w, http.StatusBadRequest, nerr.NewFmt("invalid version %s", info.Version))
			return
		}

		if info.ReleaseTime.IsZero() {
			info.ReleaseTime = time.Now()
		}

		p.catalog.Register(info)

		// каталог авторитетен, БД нужна для прогрева после перезапуска
		if err := p.versions.SaveVersion(&info, r.Context()); err != nil {
			p.controller.RespondError(w, http.StatusInternalServerError, err)
			return
		}

		p.controller.RespondData(w, http.StatusCreated, "application/json; charset=utf-8", nil)
	}
}

// список версий, доступных для обновления с текущей
func (p *Presenter) upgradeable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, false); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		var req deviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			p.controller.RespondError(w, http.StatusBadRequest, err)
			return
		}

		res := p.catalog.Upgradeable(req.CurrentVersion)
		if len(res) == 0 {
			p.controller.RespondData(w, http.StatusNoContent, "", nil)
			return
		}

		p.controller.RespondData(w, http.StatusOK, "application/json; charset=utf-8", res)
	}
}

// проверить наличие обновления для устройства
func (p *Presenter) check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, false); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		req, ok := p.parseDevice(w, r)
		if !ok {
			return
		}

		latest, needs, err := p.orchestrator.CheckForUpdate(req.DeviceID, req.CurrentVersion, r.Context())
		if err != nil {
			p.controller.RespondError(w, errStatus(err), err)
			return
		}

		p.controller.RespondData(w, http.StatusOK, "application/json; charset=utf-8", checkResponse{
			NeedsUpdate:   needs,
			LatestVersion: latest,
		})
	}
}

// скачать и проверить прошивку указанной версии
func (p *Presenter) download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, false); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		req, ok := p.parseDevice(w, r)
		if !ok {
			return
		}

		info, ok := p.catalog.Version(req.Version)
		if !ok {
			p.controller.RespondError(w, http.StatusNotFound, nerr.NewFmt("unknown version %s", req.Version))
			return
		}

		data, err := p.orchestrator.DownloadFirmware(req.DeviceID, &info, r.Context())
		if err != nil {
			p.controller.RespondError(w, errStatus(err), err)
			return
		}

		p.respondFirmware(w, data, &info)
	}
}

// проверка и скачивание одним вызовом
func (p *Presenter) perform() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, false); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		req, ok := p.parseDevice(w, r)
		if !ok {
			return
		}

		data, info, err := p.orchestrator.PerformUpdate(req.DeviceID, req.CurrentVersion, r.Context())
		if err != nil {
			p.controller.RespondError(w, errStatus(err), err)
			return
		}

		p.respondFirmware(w, data, info)
	}
}

// состояние сессии устройства
func (p *Presenter) status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, false); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		req, ok := p.parseDevice(w, r)
		if !ok {
			return
		}

		session, err := p.orchestrator.Status(req.DeviceID, r.Context())
		if err != nil {
			p.controller.RespondError(w, http.StatusInternalServerError, err)
			return
		}

		if session == nil {
			p.controller.RespondData(w, http.StatusNoContent, "", nil)
			return
		}

		p.controller.RespondData(w, http.StatusOK, "application/json; charset=utf-8", session)
	}
}

// отменить обновление
func (p *Presenter) cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, false); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		req, ok := p.parseDevice(w, r)
		if !ok {
			return
		}

		if err := p.orchestrator.Cancel(req.DeviceID, r.Context()); err != nil {
			p.controller.RespondError(w, http.StatusInternalServerError, err)
			return
		}

		p.controller.RespondData(w, http.StatusOK, "application/json; charset=utf-8", nil)
	}
}

// удалить сессию устройства
func (p *Presenter) clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.checkRights(r, true); err != nil {
			p.controller.RespondError(w, http.StatusForbidden, err)
			return
		}

		req, ok := p.parseDevice(w, r)
		if !ok {
			return
		}

		if err := p.orchestrator.Clear(req.DeviceID, r.Context()); err != nil {
			p.controller.RespondError(w, http.StatusInternalServerError, err)
			return
		}

		p.controller.RespondData(w, http.StatusOK, "application/json; charset=utf-8", nil)
	}
}

// парсинг входящего json с обязательным deviceId
func (p *Presenter) parseDevice(w http.ResponseWriter, r *http.Request) (deviceRequest, bool) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		p.controller.RespondError(w, http.StatusBadRequest, err)
		return deviceRequest{}, false
	}

	if req.DeviceID == "" {
		p.controller.RespondError(w, http.StatusBadRequest, nerr.New("deviceId required"))
		return deviceRequest{}, false
	}

	return req, true
}

// выдача проверенного буфера прошивки с метаданными в заголовках
func (p *Presenter) respondFirmware(w http.ResponseWriter, data []byte, info *entity.FirmwareInfo) {
	w.Header().Set("Firmware-Version", info.Version)
	w.Header().Set("Firmware-Checksum", info.Checksum)
	w.Header().Set("Firmware-Size", strconv.Itoa(len(data)))

	p.controller.RespondData(w, http.StatusOK, "application/octet-stream", data)
}
