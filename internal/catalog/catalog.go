// Package catalog Реестр известных версий прошивок в памяти
package catalog

import (
	"regexp"
	"sync"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/entity"
)

// Формат идентификатора версии: цифры.цифры(.цифры)?(-суффикс)?
var versionRx = regexp.MustCompile(`^\d+\.\d+(\.\d+)?(-.+)?$`)

// Catalog каталог версий. Не выполняет I/O, все операции — чистые
// вычисления над данными в памяти. Ошибок не возвращает: отсутствие
// версии выражается признаком ok
type Catalog struct {
	mutex    sync.RWMutex
	versions map[string]entity.FirmwareInfo
	order    []string // порядок регистрации, нужен для выдачи списков и разрешения ничьих
	logger   lg.Logger
}

func New(logger lg.Logger) *Catalog {
	return &Catalog{
		versions: map[string]entity.FirmwareInfo{},
		logger:   logger,
	}
}

// Register зарегистрировать версию. Идемпотентный upsert:
// повторная регистрация той же версии перезаписывает запись
func (c *Catalog) Register(info entity.FirmwareInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.versions[info.Version]; !ok {
		c.order = append(c.order, info.Version)
	}
	c.versions[info.Version] = info

	c.logger.Info("version registered: %s", info.Version)
}

// Version информация о версии по идентификатору
func (c *Catalog) Version(id string) (entity.FirmwareInfo, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, ok := c.versions[id]
	return info, ok
}

// Versions все зарегистрированные версии в порядке регистрации
func (c *Catalog) Versions() []entity.FirmwareInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	res := make([]entity.FirmwareInfo, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.versions[id])
	}
	return res
}

// Latest версия с максимальным временем релиза. Отсутствующее время
// считается самым ранним, при равенстве побеждает зарегистрированная раньше
func (c *Catalog) Latest() (entity.FirmwareInfo, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var (
		res   entity.FirmwareInfo
		found bool
	)
	for _, id := range c.order {
		info := c.versions[id]
		if !found || info.ReleaseTime.After(res.ReleaseTime) {
			res = info
			found = true
		}
	}
	return res, found
}

// NeedsUpdate нужно ли обновление с версии current. Если target не пустой,
// сравнение идет с ним, иначе с последней версией каталога.
// Если версия не разрешается, возвращает false и nil
func (c *Catalog) NeedsUpdate(current string, target string) (bool, *entity.FirmwareInfo) {
	var (
		latest entity.FirmwareInfo
		ok     bool
	)

	if target != "" {
		latest, ok = c.Version(target)
	} else {
		latest, ok = c.Latest()
	}
	if !ok {
		return false, nil
	}

	return Compare(current, latest.Version) < 0, &latest
}

// Upgradeable все версии строго больше current, в порядке регистрации
func (c *Catalog) Upgradeable(current string) []entity.FirmwareInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var res []entity.FirmwareInfo
	for _, id := range c.order {
		if Compare(current, id) < 0 {
			res = append(res, c.versions[id])
		}
	}
	return res
}

// IsValid проверка структуры идентификатора версии
func (c *Catalog) IsValid(version string) bool {
	return versionRx.MatchString(version)
}

// Compare сравнение версий: строки делятся по точкам, из каждого сегмента
// берутся ведущие цифры (суффикс вида -beta игнорируется), отсутствующие
// сегменты считаются нулями. Результат -1, 0 или 1
func Compare(a, b string) int {
	as := splitSegments(a)
	bs := splitSegments(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}

		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// разбивка идентификатора версии на числовые сегменты
func splitSegments(version string) []int {
	var res []int

	seg := 0
	skip := false

	for _, r := range version {
		switch {
		case r == '.':
			res = append(res, seg)
			seg = 0
			skip = false
		case skip:
			// после нецифрового символа остаток сегмента игнорируется
		case r >= '0' && r <= '9':
			seg = seg*10 + int(r-'0')
		default:
			skip = true
		}
	}
	res = append(res, seg)

	return res
}
