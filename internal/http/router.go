package http

import (
	"net/http"

	"minicrm/internal/auth"
	"minicrm/internal/config"
	"minicrm/internal/crm"
	"minicrm/internal/http/handler"
	mw "minicrm/internal/http/middleware"
	"minicrm/internal/idempotency"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewRouter is the route table. Reads are public; every write goes through
// RequireAuth. idem may be nil, which disables Idempotency-Key handling.
func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, idem *idempotency.Store, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	requireAuth := auth.RequireAuth(jwtSvc)

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc, Log: log}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(requireAuth).Get("/me", me.Me)

	paging := crm.Paging{Default: cfg.PageSize, Max: cfg.MaxPageSize}
	if paging.Default <= 0 || paging.Max <= 0 {
		paging = crm.DefaultPaging
	}
	svc := crm.NewService(db, paging)

	contacts := &handler.ContactHandler{Svc: svc, Idem: idem, Log: log}
	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", contacts.List)
		r.Get("/{id}", contacts.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", contacts.Create)
			r.Patch("/{id}", contacts.Update)
			r.Put("/{id}", contacts.Update)
			r.Delete("/{id}", contacts.Delete)
		})
	})

	tasks := &handler.TaskHandler{Svc: svc, Idem: idem, Log: log}
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", tasks.List)
		r.Get("/{id}", tasks.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", tasks.Create)
			r.Patch("/{id}", tasks.Update)
			r.Put("/{id}", tasks.Update)
			r.Delete("/{id}", tasks.Delete)
		})
	})

	return r
}
