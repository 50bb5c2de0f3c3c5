package presenter

import (
	"net/http"

	"github.com/n-r-w/eno"
	"github.com/n-r-w/httprouter"
	"github.com/n-r-w/nerr"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
)

type Presenter struct {
	controller   httprouter.Router
	orchestrator UpdateInterface
	catalog      CatalogInterface
	versions     VersionStoreInterface
	config       *config.Config

	tokens      map[string]bool // список всех токенов
	tokensRead  map[string]bool // список токенов доступа на чтение
	tokensWrite map[string]bool // список токенов доступа на запись
}

// New Инициализация маршрутов
func New(router httprouter.Router, orchestrator UpdateInterface, catalog CatalogInterface,
	versions VersionStoreInterface, config *config.Config) (*Presenter, error) {
	p := &Presenter{
		controller:   router,
		orchestrator: orchestrator,
		catalog:      catalog,
		versions:     versions,
		config:       config,
		tokens:       map[string]bool{},
		tokensRead:   map[string]bool{},
		tokensWrite:  map[string]bool{},
	}

	if len(config.TokensRead) == 0 {
		return nil, nerr.New("no access read tokens")
	}
	if len(config.TokensWrite) == 0 {
		return nil, nerr.New("no access write tokens")
	}

	// инициализация хранилища токенов
	for _, v := range config.TokensRead {
		p.tokensRead[v] = true
		p.tokens[v] = true
	}
	for _, v := range config.TokensWrite {
		p.tokensWrite[v] = true
		p.tokens[v] = true
	}

	// устанавливаем middleware для проверки валидности токена
	router.AddMiddleware("/api", p.authenticateUser)

	// зарегистрировать версию прошивки
	router.AddRoute("/api", "/register", p.register(), "POST")
	// список версий, доступных для обновления с текущей
	router.AddRoute("/api", "/versions", p.upgradeable(), "POST")
	// проверить наличие обновления для устройства
	router.AddRoute("/api", "/check", p.check(), "POST")
	// скачать и проверить прошивку указанной версии
	router.AddRoute("/api", "/download", p.download(), "POST")
	// проверка и скачивание одним вызовом
	router.AddRoute("/api", "/perform", p.perform(), "POST")
	// состояние сессии устройства
	router.AddRoute("/api", "/status", p.status(), "POST")
	// отменить обновление
	router.AddRoute("/api", "/cancel", p.cancel(), "POST")
	// удалить сессию устройства
	router.AddRoute("/api", "/clear", p.clear(), "POST")

	return p, nil
}

// Аутентификация пользователя
func (p *Presenter) authenticateUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Authorization")
		if _, ok := p.tokens[token]; !ok {
			p.controller.RespondError(w, http.StatusUnauthorized, nerr.New(eno.ErrNoAccess))
			return
		}

		// добавляем в контекст инфу о клиенте
		ci := &entity.ClientInfo{
			IP:     r.RemoteAddr,
			RealIP: r.Header.Get("X-Real-IP"),
		}
		ctx := entity.PutClientInfoToContext(ci, r.Context())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Проверка прав
func (p *Presenter) checkRights(r *http.Request, writeAccess bool) error {
	token := r.Header.Get("X-Authorization")
	if writeAccess {
		if _, ok := p.tokensWrite[token]; !ok {
			return nerr.New(eno.ErrNoAccess, "no write access")
		}
	} else {
		if _, ok := p.tokensRead[token]; !ok {
			return nerr.New(eno.ErrNoAccess, "no read access")
		}
	}
	return nil
}

// HTTP статус по категории ошибки конвейера
func errStatus(err error) int {
	switch entity.KindOf(err) {
	case entity.KindPrecondition:
		return http.StatusBadRequest
	case entity.KindIntegrity:
		return http.StatusUnprocessableEntity
	case entity.KindTransport:
		return http.StatusBadGateway
	case entity.KindCatalog:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
