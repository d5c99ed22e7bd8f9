//POST /api/supervisor/login     # Вход (публичный)
//POST /api/supervisor/logout    # Выход (auth)
//POST /api/supervisor/location  # Журнал перемещений (auth)
//GET  /api/sites                # Объекты супервайзера (auth)
//GET  /api/employees            # Сотрудники объектов (auth)
//GET  /api/attendance           # Посещаемость за месяц (auth)
//POST /api/attendance/sync      # Загрузка отметок с устройства (auth)
//GET  /api/v1/health            # Проверка доступности
//GET  /ws                       # Канал событий attendance_update (auth)

package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/exp/slog"

	attendanceAPI "sitekeeper/internal/app/server/api/http/attendance"
	healthAPI "sitekeeper/internal/app/server/api/http/health"
	"sitekeeper/internal/app/server/api/http/middleware"
	"sitekeeper/internal/app/server/api/http/middleware/auth"
	"sitekeeper/internal/app/server/api/http/middleware/logger"
	siteAPI "sitekeeper/internal/app/server/api/http/site"
	supervisorAPI "sitekeeper/internal/app/server/api/http/supervisor"
	"sitekeeper/internal/app/server/config"
	"sitekeeper/internal/app/server/realtime"
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/session"
	"sitekeeper/internal/domain/site"
	"sitekeeper/internal/domain/supervisor"
	"sitekeeper/internal/infrastructure/storage/postgres"
)

type Handlers struct {
	Health     *healthAPI.Handler
	Supervisor *supervisorAPI.Handler
	Site       *siteAPI.Handler
	Attendance *attendanceAPI.Handler
	Hub        *realtime.Hub
}

// New создает *chi.Mux с операциями huma и websocket-каналом
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.CleanPath)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("Sitekeeper API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(storage, cfg, log)
	h.Health.SetupRoutes(API)
	h.Supervisor.SetupRoutes(API)
	h.Site.SetupRoutes(API)
	h.Attendance.SetupRoutes(API)
	mux.Handle("/ws", h.Hub)

	return mux
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *Handlers {
	sessionRepo := postgres.NewSessionRepository(storage, log)
	sessionService := session.NewService(sessionRepo, cfg.Session.TTL, log)

	supervisorRepo := postgres.NewSupervisorRepository(storage, log)
	supervisorService := supervisor.NewService(supervisorRepo, sessionService, supervisor.NewCredentialsValidator(), log)

	authMW := auth.New(sessionService, supervisorService, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	hub := realtime.NewHub(authMW, wsToken, log)

	healthHandler := healthAPI.NewHandler(storage.Pool(), log, middlewares.Add(loggerMW.Middleware()).GetAllAndClear())

	attendanceRepo := postgres.NewAttendanceRepository(storage, log)
	attendanceService := attendance.NewService(attendanceRepo, hub, log)

	public := middlewares.Add(loggerMW.Middleware()).GetAllAndClear()
	private := middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear()
	supervisorHandler := supervisorAPI.NewHandler(supervisorService, sessionService, attendanceService, log, public, private)

	siteRepo := postgres.NewSiteRepository(storage, log)
	siteService := site.NewService(siteRepo, log)
	siteHandler := siteAPI.NewHandler(siteService, log, middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear())

	attendanceHandler := attendanceAPI.NewHandler(attendanceService, log, middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear())

	return &Handlers{
		Health:     healthHandler,
		Supervisor: supervisorHandler,
		Site:       siteHandler,
		Attendance: attendanceHandler,
		Hub:        hub,
	}
}

// wsToken токен из заголовка Authorization или параметра token
func wsToken(r *http.Request) string {
	if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return r.URL.Query().Get("token")
}
