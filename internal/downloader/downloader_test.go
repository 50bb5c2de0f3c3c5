package downloader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
)

func testConfig() *config.Config {
	return &config.Config{
		RateLimit:       1000,
		RateLimitBurst:  1000,
		DownloadTimeout: 5,
		MaxFirmwareSize: 1,
	}
}

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("fw"), 1024)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	d := New(testConfig(), lg.New())

	var progress []entity.DownloadProgress
	data, err := d.Download(srv.URL, 0, func(p entity.DownloadProgress) {
		progress = append(progress, p)
	}, context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(data, payload) {
		t.Error("downloaded data mismatch")
	}

	if len(progress) == 0 {
		t.Fatal("no progress callbacks")
	}
	if last := progress[len(progress)-1]; last.Percentage != 100 {
		t.Errorf("final progress %d, expected 100", last.Percentage)
	}
	// прогресс не убывает
	for i := 1; i < len(progress); i++ {
		if progress[i].Percentage < progress[i-1].Percentage {
			t.Errorf("progress decreased: %d after %d", progress[i].Percentage, progress[i-1].Percentage)
		}
	}

	// повторный запрос того же URL идет из кэша с единственным колбэком 100%
	progress = nil
	data, err = d.Download(srv.URL, 0, func(p entity.DownloadProgress) {
		progress = append(progress, p)
	}, context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("cached data mismatch")
	}
	if len(progress) != 1 || progress[0].Percentage != 100 {
		t.Errorf("cache hit progress: %v", progress)
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected 1 network fetch, got %d", got)
	}
}

func TestClearCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	d := New(testConfig(), lg.New())

	for i := 0; i < 2; i++ {
		if _, err := d.Download(srv.URL, 0, nil, context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 fetch before clear, got %d", got)
	}

	d.ClearCache()

	if _, err := d.Download(srv.URL, 0, nil, context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("expected 2 fetches after clear, got %d", got)
	}
}

func TestDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := New(testConfig(), lg.New())

	_, err := d.Download(srv.URL, 0, nil, context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := entity.KindOf(err); kind != entity.KindTransport {
		t.Errorf("error kind %v, expected transport", kind)
	}
}

func TestDownloadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second * 2)
	}))
	defer srv.Close()

	d := New(testConfig(), lg.New())

	_, err := d.Download(srv.URL, time.Millisecond*50, nil, context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := entity.KindOf(err); kind != entity.KindTransport {
		t.Errorf("error kind %v, expected transport", kind)
	}
}

func TestDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2<<20))
	}))
	defer srv.Close()

	d := New(testConfig(), lg.New()) // лимит 1 МБ

	_, err := d.Download(srv.URL, 0, nil, context.Background())
	if err == nil {
		t.Fatal("expected size limit error")
	}
	if kind := entity.KindOf(err); kind != entity.KindTransport {
		t.Errorf("error kind %v, expected transport", kind)
	}
}

func TestDownloadRateLimitSkipsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	// один жетон на весь тест, пополнения нет
	cfg := testConfig()
	cfg.RateLimit = 0
	cfg.RateLimitBurst = 1

	d := New(cfg, lg.New())

	if _, err := d.Download(srv.URL+"/a.bin", 0, nil, context.Background()); err != nil {
		t.Fatal(err)
	}

	// повтор того же URL идет из кэша и лимитом не отклоняется
	if _, err := d.Download(srv.URL+"/a.bin", 0, nil, context.Background()); err != nil {
		t.Fatalf("cache hit rejected by limiter: %v", err)
	}

	// новый URL требует сетевого запроса и упирается в лимит
	_, err := d.Download(srv.URL+"/b.bin", 0, nil, context.Background())
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if kind := entity.KindOf(err); kind != entity.KindTransport {
		t.Errorf("error kind %v, expected transport", kind)
	}
}

func TestDownloadRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0
	cfg.RateLimitBurst = 0

	d := New(cfg, lg.New())

	_, err := d.Download("http://127.0.0.1/firmware.bin", 0, nil, context.Background())
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if kind := entity.KindOf(err); kind != entity.KindTransport {
		t.Errorf("error kind %v, expected transport", kind)
	}
}
