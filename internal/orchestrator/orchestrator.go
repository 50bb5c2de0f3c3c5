// Package orchestrator Машина состояний обновления устройств.
// Ведет по одной сессии на устройство и прогоняет ее по цепочке
// каталог -> скачивание -> проверка целостности
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
)

// Прогресс взвешенный: скачивание занимает 0..90, начало проверки
// фиксирует 90, завершение 100. Внутри одного прогона прогресс
// не убывает
const (
	verifyProgress   = 90
	completeProgress = 100
)

// Service оркестратор обновлений. Операции над одним устройством
// сериализуются, статусные операции (Status/Cancel/Clear) идут мимо
// блокировки устройства, чтобы работать во время скачивания
type Service struct {
	sessions   SessionInterface
	catalog    CatalogInterface
	downloader DownloadInterface
	verifier   VerifyInterface
	config     *config.Config
	logger     lg.Logger

	mutex       sync.Mutex
	deviceLocks map[string]*sync.Mutex
}

func New(sessions SessionInterface, catalog CatalogInterface, downloader DownloadInterface,
	verifier VerifyInterface, cfg *config.Config, logger lg.Logger) *Service {
	return &Service{
		sessions:    sessions,
		catalog:     catalog,
		downloader:  downloader,
		verifier:    verifier,
		config:      cfg,
		logger:      logger,
		deviceLocks: map[string]*sync.Mutex{},
	}
}

// CheckForUpdate проверить наличие обновления для устройства.
// Создает или перезаписывает сессию устройства. Возвращает разрешенную
// последнюю версию (nil, если каталог пуст) и признак необходимости
// обновления
func (s *Service) CheckForUpdate(deviceID string, currentVersion string, ctx context.Context) (*entity.FirmwareInfo, bool, error) {
	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	return s.checkForUpdate(deviceID, currentVersion, ctx)
}

// DownloadFirmware скачать и проверить прошивку для устройства.
// Возвращает проверенный буфер, пригодный для передачи подсистеме
// установки. Любая ошибка пишется в сессию и возвращается вызывающему
func (s *Service) DownloadFirmware(deviceID string, info *entity.FirmwareInfo, ctx context.Context) ([]byte, error) {
	// предусловие проверяется до любого изменения сессии
	if info == nil || info.FileURL == "" {
		return nil, entity.NewErrorFmt(entity.KindPrecondition, "no download url for device %s", deviceID)
	}

	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	return s.downloadFirmware(deviceID, info, ctx)
}

// PerformUpdate проверка и скачивание одним вызовом. Если обновления
// нет, возвращает ошибку предусловия
func (s *Service) PerformUpdate(deviceID string, currentVersion string, ctx context.Context) ([]byte, *entity.FirmwareInfo, error) {
	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	latest, needs, err := s.checkForUpdate(deviceID, currentVersion, ctx)
	if err != nil {
		return nil, nil, err
	}
	if !needs {
		return nil, nil, entity.NewErrorFmt(entity.KindPrecondition, "no update available for device %s", deviceID)
	}

	if latest.FileURL == "" {
		return nil, nil, entity.NewErrorFmt(entity.KindPrecondition, "no download url for device %s", deviceID)
	}

	data, err := s.downloadFirmware(deviceID, latest, ctx)
	if err != nil {
		return nil, nil, err
	}

	return data, latest, nil
}

// Status снимок сессии устройства. nil, если устройство ни разу не проверялось
func (s *Service) Status(deviceID string, ctx context.Context) (*entity.UpdateSession, error) {
	session, ok, err := s.sessions.Get(deviceID, ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// Cancel отменить обновление. Действует только в состоянии downloading:
// сессия переводится в failed с сообщением об отмене. Сетевой запрос
// не прерывается, отмена только учетная: оркестратор сам не даст
// отмененной сессии дойти до completed
func (s *Service) Cancel(deviceID string, ctx context.Context) error {
	session, ok, err := s.sessions.Get(deviceID, ctx)
	if err != nil {
		return err
	}
	if !ok || session.Status != entity.StatusDownloading {
		return nil
	}

	session.Status = entity.StatusFailed
	session.Error = "update cancelled by user"
	session.EndTime = time.Now()

	// атомарная запись: если скачивание успело перейти в verifying,
	// отмена уже не действует
	done, err := s.sessions.PutIf(session, entity.StatusDownloading, ctx)
	if err != nil {
		return err
	}
	if done {
		s.logger.Info("update cancelled: %s", deviceID)
	}

	return nil
}

// Clear удалить сессию устройства, как будто его никогда не проверяли
func (s *Service) Clear(deviceID string, ctx context.Context) error {
	return s.sessions.Delete(deviceID, ctx)
}

func (s *Service) checkForUpdate(deviceID string, currentVersion string, ctx context.Context) (*entity.FirmwareInfo, bool, error) {
	session := entity.UpdateSession{
		DeviceID:       deviceID,
		CurrentVersion: currentVersion,
		Status:         entity.StatusChecking,
		StartTime:      time.Now(),
	}
	if err := s.sessions.Put(session, ctx); err != nil {
		return nil, false, err
	}

	needs, latest := s.catalog.NeedsUpdate(currentVersion, "")

	session.Status = entity.StatusIdle
	if needs {
		session.TargetVersion = latest.Version
	}
	if err := s.sessions.Put(session, ctx); err != nil {
		return nil, false, err
	}

	if needs {
		s.logger.Info("update found: %s, %s => %s", deviceID, currentVersion, latest.Version)
	} else {
		s.logger.Info("update not found: %s, %s", deviceID, currentVersion)
	}

	return latest, needs, nil
}

func (s *Service) downloadFirmware(deviceID string, info *entity.FirmwareInfo, ctx context.Context) ([]byte, error) {
	session, ok, err := s.sessions.Get(deviceID, ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		session = entity.UpdateSession{
			DeviceID:  deviceID,
			StartTime: time.Now(),
		}
	}

	session.Status = entity.StatusDownloading
	session.TargetVersion = info.Version
	session.Progress = 0
	session.Error = ""
	session.EndTime = time.Time{}
	if err = s.sessions.Put(session, ctx); err != nil {
		return nil, s.failSession(deviceID, err, ctx)
	}

	timeout := time.Second * time.Duration(s.config.DownloadTimeout)

	data, err := s.downloader.Download(info.FileURL, timeout, s.progressFunc(deviceID, ctx), ctx)
	if err != nil {
		return nil, s.failSession(deviceID, err, ctx)
	}

	// сессию могли отменить, пока шло скачивание. Переход в verifying
	// атомарный: отмененной или удаленной сессии он не проходит
	session.Status = entity.StatusVerifying
	session.Progress = verifyProgress
	ok, err = s.sessions.PutIf(session, entity.StatusDownloading, ctx)
	if err != nil {
		return nil, s.failSession(deviceID, err, ctx)
	}
	if !ok {
		return nil, entity.NewErrorFmt(entity.KindPrecondition, "update cancelled: %s", deviceID)
	}

	if res := s.verifier.VerifyIntegrity(data, info); !res.Valid {
		err = entity.NewError(entity.KindIntegrity, strings.Join(res.Errors, "; "))
		return nil, s.failSession(deviceID, err, ctx)
	}

	session.Status = entity.StatusCompleted
	session.Progress = completeProgress
	session.EndTime = time.Now()
	if err = s.sessions.Put(session, ctx); err != nil {
		return nil, s.failSession(deviceID, err, ctx)
	}

	s.logger.Info("update completed: %s, %s => %s", deviceID, session.CurrentVersion, info.Version)

	return data, nil
}

// перевод сессии в failed с текстом ошибки. Ошибка идет по двум каналам:
// вызывающему и в сессию для последующего опроса
func (s *Service) failSession(deviceID string, cause error, ctx context.Context) error {
	session, ok, err := s.sessions.Get(deviceID, ctx)
	if err == nil && ok && !session.Status.Terminal() {
		session.Status = entity.StatusFailed
		session.Error = cause.Error()
		session.EndTime = time.Now()

		if putErr := s.sessions.Put(session, ctx); putErr != nil {
			s.logger.Error("session save error: %s, %v", deviceID, putErr)
		}
	}

	s.logger.Error("update failed: %s, %v", deviceID, cause)

	return cause
}

// колбэк прогресса: скачанные проценты отображаются в диапазон 0..90
// и пишутся в сессию. Прогресс только растет и не трогает сессию,
// вышедшую из состояния downloading (например, после отмены).
// Запись атомарная, чтобы снимок не перетер отмену, случившуюся
// между чтением и записью
func (s *Service) progressFunc(deviceID string, ctx context.Context) entity.ProgressFunc {
	return func(p entity.DownloadProgress) {
		session, ok, err := s.sessions.Get(deviceID, ctx)
		if err != nil || !ok || session.Status != entity.StatusDownloading {
			return
		}

		progress := p.Percentage * verifyProgress / 100
		if progress <= session.Progress {
			return
		}

		session.Progress = progress
		if _, err = s.sessions.PutIf(session, entity.StatusDownloading, ctx); err != nil {
			s.logger.Error("session save error: %s, %v", deviceID, err)
		}
	}
}

// блокировка операций по устройству
func (s *Service) deviceLock(deviceID string) *sync.Mutex {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lock, ok := s.deviceLocks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		s.deviceLocks[deviceID] = lock
	}
	return lock
}
