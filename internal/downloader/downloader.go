// Package downloader Скачивание прошивок по HTTP с кэшем по URL
package downloader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/n-r-w/eno"
	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
	"github.com/n-r-w/otasrv/internal/verifier"
	"golang.org/x/time/rate"
)

// Downloader единственный сетевой компонент конвейера. Результат
// скачивания кэшируется по URL: повторный запрос того же URL не выходит
// в сеть, на один URL приходится не более одного сетевого запроса за
// время жизни процесса
type Downloader struct {
	client  *http.Client
	config  *config.Config
	logger  lg.Logger
	limiter *rate.Limiter

	mutex      sync.Mutex
	cache      map[string][]byte
	processing map[string]int // счетчик скачиваний в полете, по URL
}

func New(cfg *config.Config, logger lg.Logger) *Downloader {
	return &Downloader{
		client:     &http.Client{},
		config:     cfg,
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		cache:      map[string][]byte{},
		processing: map[string]int{},
	}
}

// Download скачать прошивку по URL. Сначала проверяется кэш: при попадании
// данные возвращаются сразу с единственным колбэком 100%. При промахе
// выполняется сетевой запрос с инкрементальными колбэками прогресса и
// гарантированным финальным колбэком 100%, после чего кэш заполняется.
// Одновременные запросы одного некэшированного URL делят один сетевой
// запрос (ожидающие ждут и забирают результат из кэша).
//
// Таймаут действует только на сетевой запрос, внутренние повторы не
// выполняются. Докачка по HTTP range не поддерживается: буфер всегда
// скачивается целиком
func (d *Downloader) Download(url string, timeout time.Duration, onProgress entity.ProgressFunc, ctx context.Context) ([]byte, error) {
	data, hit, err := d.waitCached(url, ctx)
	if err != nil {
		return nil, err
	}
	if hit {
		d.logger.Info("download from cache: %s", url)
		reportDone(onProgress, int64(len(data)))
		return data, nil
	}

	// кэш промахнулся, этот вызов владеет скачиванием
	defer func() {
		d.mutex.Lock()
		counter := d.processing[url]
		if counter <= 1 {
			delete(d.processing, url)
		} else {
			d.processing[url] = counter - 1
		}
		d.mutex.Unlock()
	}()

	// лимит защищает внешний сервер артефактов, ответы из кэша
	// под него не попадают
	if !d.limiter.Allow() {
		return nil, entity.NewError(entity.KindTransport, eno.ErrTooManyRequests)
	}

	if timeout <= 0 {
		timeout = time.Second * time.Duration(d.config.DownloadTimeout)
	}

	data, err = d.fetch(url, timeout, onProgress, ctx)
	if err != nil {
		return nil, err
	}

	d.mutex.Lock()
	d.cache[url] = data
	d.mutex.Unlock()

	reportDone(onProgress, int64(len(data)))
	d.logger.Info("downloaded %d bytes: %s", len(data), url)

	return copyBytes(data), nil
}

// ClearCache очистить кэш скачанных прошивок
func (d *Downloader) ClearCache() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.cache = map[string][]byte{}
}

// CalculateChecksum дайджест буфера. Удобный дубликат функции верификатора,
// решения о целостности принимает только он
func (d *Downloader) CalculateChecksum(data []byte, algorithm string) (string, error) {
	return verifier.CalculateChecksum(data, algorithm)
}

// VerifyChecksum проверка суммы. Удобный дубликат функции верификатора
func (d *Downloader) VerifyChecksum(data []byte, expected string) bool {
	return verifier.VerifyChecksum(data, expected)
}

// ожидание результата чужого скачивания либо захват права на свое.
// При возврате hit=false текущий вызов зарегистрирован в processing
func (d *Downloader) waitCached(url string, ctx context.Context) (data []byte, hit bool, err error) {
	wasWarn := false
	for {
		d.mutex.Lock()
		if cached, ok := d.cache[url]; ok {
			d.mutex.Unlock()
			return copyBytes(cached), true, nil
		}
		if d.processing[url] == 0 {
			d.processing[url] = 1
			d.mutex.Unlock()
			return nil, false, nil
		}
		d.mutex.Unlock()

		if !wasWarn {
			wasWarn = true
			d.logger.Info("waiting in-flight download: %s", url)
		}

		select {
		case <-time.After(time.Millisecond * 100):
		case <-ctx.Done():
			return nil, false, entity.NewError(entity.KindTransport, eno.ErrDeadlineExceeded)
		}
	}
}

// сетевое скачивание с отчетом о прогрессе
func (d *Downloader) fetch(url string, timeout time.Duration, onProgress entity.ProgressFunc, ctx context.Context) ([]byte, error) {
	ctxChild, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxChild, http.MethodGet, url, nil)
	if err != nil {
		return nil, entity.NewError(entity.KindTransport, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, entity.NewError(entity.KindTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, entity.NewErrorFmt(entity.KindTransport, "download failed, status %d: %s", resp.StatusCode, url)
	}

	maxSize := int64(d.config.MaxFirmwareSize) << 20

	pr := &progressReader{
		reader:     resp.Body,
		total:      resp.ContentLength,
		onProgress: onProgress,
	}

	buf := bytes.Buffer{}
	if _, err = io.Copy(&buf, io.LimitReader(pr, maxSize+1)); err != nil {
		return nil, entity.NewError(entity.KindTransport, err)
	}

	if int64(buf.Len()) > maxSize {
		return nil, entity.NewErrorFmt(entity.KindTransport, "firmware too large, limit %d MB: %s", d.config.MaxFirmwareSize, url)
	}

	return buf.Bytes(), nil
}

// progressReader считает прочитанные байты и дергает колбэк.
// Финальные 100% не его забота, их гарантирует Download
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	onProgress entity.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 {
		p.downloaded += int64(n)
		if p.onProgress != nil {
			percentage := 0
			if p.total > 0 {
				percentage = int(p.downloaded * 100 / p.total)
				if percentage > 100 {
					percentage = 100
				}
			}
			p.onProgress(entity.DownloadProgress{
				Downloaded: p.downloaded,
				Total:      p.total,
				Percentage: percentage,
			})
		}
	}
	return n, err
}

// финальный колбэк 100%
func reportDone(onProgress entity.ProgressFunc, size int64) {
	if onProgress == nil {
		return
	}
	onProgress(entity.DownloadProgress{
		Downloaded: size,
		Total:      size,
		Percentage: 100,
	})
}

func copyBytes(data []byte) []byte {
	res := make([]byte, len(data))
	copy(res, data)
	return res
}
