package catalog

import (
	"testing"
	"time"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/entity"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"1.0.0", "1.0.1", -1},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"1.2", "1.2.0", 0}, // отсутствующий сегмент считается нулем
		{"1.2", "1.2.1", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0-beta", "1.0.0", 0}, // суффикс не участвует в сравнении
		{"0.9", "1.0.0", -1},
	}

	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.expected {
			t.Errorf("Compare(%q, %q) = %d, expected %d", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestIsValid(t *testing.T) {
	c := New(lg.New())

	tests := []struct {
		version string
		valid   bool
	}{
		{"1.0.0", true},
		{"1.0", true},
		{"1.0.0-beta", true},
		{"1.0.0-rc.1", true},
		{"1", false},
		{"", false},
		{"a.b.c", false},
		{"1.0.0.", false},
		{"1.0.0-", false},
	}

	for _, tt := range tests {
		if got := c.IsValid(tt.version); got != tt.valid {
			t.Errorf("IsValid(%q) = %v, expected %v", tt.version, got, tt.valid)
		}
	}
}

func TestNeedsUpdate(t *testing.T) {
	c := New(lg.New())
	c.Register(entity.FirmwareInfo{Version: "1.0.1", ReleaseTime: time.Now()})

	needs, latest := c.NeedsUpdate("1.0.0", "")
	if !needs {
		t.Error("expected update for 1.0.0")
	}
	if latest == nil || latest.Version != "1.0.1" {
		t.Errorf("unexpected latest version: %v", latest)
	}

	needs, latest = c.NeedsUpdate("2.0.0", "")
	if needs {
		t.Error("unexpected update for 2.0.0")
	}
	if latest == nil || latest.Version != "1.0.1" {
		t.Errorf("unexpected latest version: %v", latest)
	}
}

func TestNeedsUpdateEmptyCatalog(t *testing.T) {
	c := New(lg.New())

	needs, latest := c.NeedsUpdate("1.0.0", "")
	if needs || latest != nil {
		t.Errorf("empty catalog: needs=%v, latest=%v", needs, latest)
	}
}

func TestNeedsUpdateExplicitTarget(t *testing.T) {
	c := New(lg.New())
	c.Register(entity.FirmwareInfo{Version: "1.0.1"})
	c.Register(entity.FirmwareInfo{Version: "1.0.2"})

	needs, latest := c.NeedsUpdate("1.0.0", "1.0.1")
	if !needs || latest == nil || latest.Version != "1.0.1" {
		t.Errorf("explicit target: needs=%v, latest=%v", needs, latest)
	}

	needs, latest = c.NeedsUpdate("1.0.0", "9.9.9")
	if needs || latest != nil {
		t.Errorf("unknown target: needs=%v, latest=%v", needs, latest)
	}
}

func TestLatest(t *testing.T) {
	c := New(lg.New())

	if _, ok := c.Latest(); ok {
		t.Error("latest on empty catalog")
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Register(entity.FirmwareInfo{Version: "1.0.0", ReleaseTime: base})
	c.Register(entity.FirmwareInfo{Version: "1.0.2"}) // нет времени релиза, считается самой ранней
	c.Register(entity.FirmwareInfo{Version: "1.0.1", ReleaseTime: base.Add(time.Hour)})

	latest, ok := c.Latest()
	if !ok || latest.Version != "1.0.1" {
		t.Errorf("unexpected latest: %v", latest)
	}
}

func TestLatestTie(t *testing.T) {
	c := New(lg.New())

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Register(entity.FirmwareInfo{Version: "1.0.0", ReleaseTime: ts})
	c.Register(entity.FirmwareInfo{Version: "1.0.1", ReleaseTime: ts})

	// при равном времени релиза побеждает зарегистрированная раньше
	latest, ok := c.Latest()
	if !ok || latest.Version != "1.0.0" {
		t.Errorf("unexpected latest on tie: %v", latest)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	c := New(lg.New())

	c.Register(entity.FirmwareInfo{Version: "1.0.0", Info: "first"})
	c.Register(entity.FirmwareInfo{Version: "1.0.0", Info: "second"})

	if got := len(c.Versions()); got != 1 {
		t.Fatalf("expected 1 version, got %d", got)
	}

	info, ok := c.Version("1.0.0")
	if !ok || info.Info != "second" {
		t.Errorf("re-registration did not overwrite: %v", info)
	}
}

func TestUpgradeable(t *testing.T) {
	c := New(lg.New())

	c.Register(entity.FirmwareInfo{Version: "1.0.2"})
	c.Register(entity.FirmwareInfo{Version: "0.9.0"})
	c.Register(entity.FirmwareInfo{Version: "1.0.1"})

	res := c.Upgradeable("1.0.0")
	if len(res) != 2 {
		t.Fatalf("expected 2 upgradeable versions, got %d", len(res))
	}

	// порядок регистрации
	if res[0].Version != "1.0.2" || res[1].Version != "1.0.1" {
		t.Errorf("unexpected order: %s, %s", res[0].Version, res[1].Version)
	}
}
