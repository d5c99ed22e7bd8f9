package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	gosync "sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"sitekeeper/internal/app/client/config"
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/geofence"
	"sitekeeper/internal/domain/site"
	"sitekeeper/internal/domain/supervisor"
)

const refreshInterval = time.Minute

// Event внешнее событие жизненного цикла
type Event int

const (
	EventConnectivityRegained Event = iota
	EventForegrounded
	EventPermissionGranted
)

func (e Event) String() string {
	switch e {
	case EventConnectivityRegained:
		return "connectivity_regained"
	case EventForegrounded:
		return "foregrounded"
	case EventPermissionGranted:
		return "permission_granted"
	default:
		return "unknown"
	}
}

type App struct {
	config     *config.Config
	log        *slog.Logger
	ledger     *Ledger
	httpClient *httpClient
	source     LocationSource
	monitor    *geofence.Monitor
	sampler    *Sampler
	marker     *Marker
	sync       *SyncService
	merger     *Merger
	notifier   *Notifier

	state    *AppState
	lastView *attendance.View
	online   bool
	cancel   context.CancelFunc
	closing  bool
	wg       gosync.WaitGroup
	mu       gosync.RWMutex
}

// AppState хранит состояние приложения между запусками
type AppState struct {
	SupervisorID   string               `json:"supervisor_id"`
	SupervisorName string               `json:"supervisor_name"`
	Role           string               `json:"role"`
	Email          string               `json:"email"`
	AssignedSites  []string             `json:"assigned_sites"`
	SiteID         string               `json:"site_id"`
	DeviceID       string               `json:"device_id"`
	LastSync       time.Time            `json:"last_sync"`
	LastSyncError  string               `json:"last_sync_error,omitempty"`
	LastErrorKind  attendance.ErrorKind `json:"last_error_kind,omitempty"`
}

// SyncStatus состояние очереди выгрузки
type SyncStatus struct {
	Pending          int                  `json:"pending"`
	PendingLocations int                  `json:"pending_locations"`
	LastSync         time.Time            `json:"last_sync"`
	LastError        string               `json:"last_error,omitempty"`
	LastErrorKind    attendance.ErrorKind `json:"last_error_kind,omitempty"`
	Stats            SyncStats            `json:"stats"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}
	if state.DeviceID == "" {
		state.DeviceID = uuid.NewString()
	}

	ledger, err := NewLedger(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}

	httpCl := NewHTTPClient(cfg, log)

	var source LocationSource = NewStaticSource()
	if cfg.LocationFile != "" {
		source = NewFileSource(cfg.LocationFile)
	}

	monitor := geofence.NewMonitor()

	app := &App{
		config:     cfg,
		log:        log,
		ledger:     ledger,
		httpClient: httpCl,
		source:     source,
		monitor:    monitor,
		state:      state,
	}

	app.sampler = NewSampler(source, monitor, ledger, cfg.LocationInterval, log)
	app.marker = NewMarker(ledger, httpCl, monitor, cfg.RequestTimeout, cfg.Timezone, log)
	app.sync = NewSyncService(ledger, httpCl, NewFileResolver(log), cfg.RequestTimeout, log)
	app.merger = NewMerger(ledger, httpCl, cfg.RequestTimeout, log)
	app.notifier = NewNotifier(cfg, httpCl.Token, log)

	app.marker.OnRecorded(func(string, string) { app.sync.Trigger("mark") })
	app.marker.OnAlreadyMarked(func(siteID, date string) { app.refreshAsync(siteID, date) })
	app.sync.OnResult(app.recordSync)
	app.notifier.Subscribe(EventAttendanceUpdate, app.onAttendanceUpdate)

	if token, err := app.GetToken(); err == nil && token != "" {
		httpCl.SetToken(token)
		log.Debug("Токен загружен из файла")
	}

	if state.SiteID != "" {
		if err := app.activate(context.Background(), state.SiteID); err != nil {
			log.Warn("Не удалось восстановить активный объект", "site_id", state.SiteID, "error", err)
		}
	}

	if err := app.saveAppState(); err != nil {
		log.Warn("Не удалось сохранить состояние", "error", err)
	}

	return app, nil
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	if _, err := os.Stat(cfg.StatePath); os.IsNotExist(err) {
		return &AppState{}, nil
	}

	data, err := os.ReadFile(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// saveAppState вызывается под a.mu
func (a *App) saveAppState() error {
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(a.config.StatePath, data, 0600)
}

// State копия текущего состояния
func (a *App) State() AppState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := *a.state
	st.AssignedSites = slices.Clone(a.state.AssignedSites)
	return st
}

// Run запускает фоновые задачи и ждет сигнала завершения
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.handleSignals(ctx)
	}()

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"site_id", a.State().SiteID,
	)

	err := a.run(ctx)
	a.stopBackground()
	cancel()
	a.wg.Wait()
	return err
}

func (a *App) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.sampler.Start(ctx) })
	g.Go(func() error { return a.sync.Start(ctx) })
	g.Go(func() error { return a.notifier.Start(ctx) })
	g.Go(func() error {
		a.every(ctx, a.config.SyncInterval, func() { a.sync.Trigger("timer") })
		return nil
	})
	g.Go(func() error {
		a.every(ctx, a.config.ConnectivityCheck, func() { a.checkConnectivity(ctx) })
		return nil
	})
	g.Go(func() error {
		a.every(ctx, refreshInterval, func() { a.periodicRefresh(ctx) })
		return nil
	})

	a.sync.Trigger("startup")

	return g.Wait()
}

func (a *App) every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (a *App) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
		a.Shutdown()
	case <-ctx.Done():
	}
}

func (a *App) Shutdown() {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// Close закрывает локальное хранилище
func (a *App) Close() error {
	a.log.Info("Завершение работы клиента...")
	a.stopBackground()
	a.wg.Wait()
	return a.ledger.Close()
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return a.httpClient.HealthCheck(ctx)
}

// checkConnectivity вызывает синхронизацию при восстановлении связи
func (a *App) checkConnectivity(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	err := a.httpClient.HealthCheck(reqCtx)
	cancel()

	a.mu.Lock()
	was := a.online
	a.online = err == nil
	a.mu.Unlock()

	if err == nil && !was {
		a.Dispatch(ctx, EventConnectivityRegained)
	}
	if err != nil && was {
		a.log.Warn("Сервер недоступен", "error", err)
	}
}

func (a *App) periodicRefresh(ctx context.Context) {
	if siteID := a.State().SiteID; siteID != "" {
		if _, err := a.Refresh(ctx); err != nil {
			a.log.Warn("periodic refresh failed", "error", err)
		}
	}

	n, err := a.ledger.CountUnsynced(ctx)
	if err != nil {
		a.log.Error("count unsynced", "error", err)
		return
	}
	if n > 0 {
		a.sync.Trigger("refresh")
	}
}

// Dispatch обрабатывает событие жизненного цикла
func (a *App) Dispatch(ctx context.Context, ev Event) {
	a.log.Debug("event", "event", ev.String())

	switch ev {
	case EventConnectivityRegained:
		a.sync.Trigger(ev.String())
	case EventForegrounded:
		a.sync.Trigger(ev.String())
		if siteID := a.State().SiteID; siteID != "" {
			a.refreshAsync(siteID, a.marker.Today())
		}
	case EventPermissionGranted:
		if _, err := a.sampler.Sample(ctx); err != nil && !errors.Is(err, ErrNoFix) {
			a.log.Warn("location sample failed", "error", err)
		}
	}
}

func (a *App) recordSync(result *SyncResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if result.Success {
		a.state.LastSync = result.EndTime
		a.state.LastSyncError = ""
		a.state.LastErrorKind = attendance.KindNone
	} else {
		a.state.LastSyncError = result.LastError
		a.state.LastErrorKind = result.LastErrorKind
	}

	if err := a.saveAppState(); err != nil {
		a.log.Warn("Не удалось сохранить состояние", "error", err)
	}
}

func (a *App) onAttendanceUpdate(data json.RawMessage) {
	var ev attendance.UpdateEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		a.log.Debug("bad attendance_update payload", "error", err)
	}

	siteID := a.State().SiteID
	if siteID == "" || (ev.SiteID != "" && ev.SiteID != siteID) {
		return
	}

	a.refreshAsync(siteID, a.marker.Today())
}

// stopBackground запрещает новые фоновые задачи перед ожиданием wg
func (a *App) stopBackground() {
	a.mu.Lock()
	a.closing = true
	a.mu.Unlock()
}

func (a *App) refreshAsync(siteID, date string) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		if _, err := a.refresh(context.Background(), siteID, date); err != nil {
			a.log.Warn("refresh failed", "site_id", siteID, "error", err)
		}
	}()
}

func (a *App) refresh(ctx context.Context, siteID, date string) (attendance.View, error) {
	view, err := a.merger.Refresh(ctx, siteID, date)
	if err != nil {
		return view, err
	}

	a.mu.Lock()
	a.lastView = &view
	a.mu.Unlock()

	a.log.Debug("attendance view refreshed", "site_id", siteID, "date", date, "source", view.Source, "entries", len(view.Entries))
	return view, nil
}

// LastView последняя построенная сводка
func (a *App) LastView() (attendance.View, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastView == nil {
		return attendance.View{}, false
	}
	return *a.lastView, true
}

// IsAuthenticated проверяет, есть ли сохраненный токен
func (a *App) IsAuthenticated() bool {
	return a.httpClient.Token() != ""
}

// GetToken возвращает сохраненный токен
func (a *App) GetToken() (string, error) {
	tokenBytes, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("токен не найден. Выполните вход: sitekeeper auth login")
		}
		return "", fmt.Errorf("ошибка чтения токена: %w", err)
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

// SaveToken сохраняет токен аутентификации
func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}

	a.httpClient.SetToken(token)

	return nil
}

// ClearToken удаляет токен
func (a *App) ClearToken() error {
	a.httpClient.SetToken("")

	if err := os.Remove(a.config.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления токена: %w", err)
	}
	return nil
}

// Login выполняет вход супервайзера и загружает справочники
func (a *App) Login(ctx context.Context, username, password string) (supervisor.LoginResponse, error) {
	a.mu.RLock()
	deviceID := a.state.DeviceID
	a.mu.RUnlock()

	resp, err := a.httpClient.Login(ctx, supervisor.LoginRequest{
		Username:   username,
		Password:   password,
		DeviceID:   deviceID,
		DeviceName: a.config.DeviceName,
	})
	if err != nil {
		return resp, err
	}

	if err := a.SaveToken(resp.Token); err != nil {
		return resp, err
	}

	a.mu.Lock()
	a.state.SupervisorID = resp.UserID
	a.state.SupervisorName = resp.Name
	a.state.Role = resp.Role
	a.state.Email = resp.Email
	a.state.AssignedSites = resp.AssignedSites
	if a.state.SiteID != "" && !slices.Contains(resp.AssignedSites, a.state.SiteID) {
		a.state.SiteID = ""
	}
	if err := a.saveAppState(); err != nil {
		a.log.Warn("Не удалось сохранить состояние", "error", err)
	}
	a.mu.Unlock()

	a.log.Info("Вход выполнен успешно", "supervisor_id", resp.UserID)

	if _, _, err := a.PullReference(ctx); err != nil {
		a.log.Warn("Не удалось загрузить справочники", "error", err)
		return resp, nil
	}

	if len(resp.AssignedSites) == 1 && a.State().SiteID == "" {
		if err := a.UseSite(ctx, resp.AssignedSites[0]); err != nil {
			a.log.Warn("Не удалось выбрать объект", "error", err)
		}
	}

	return resp, nil
}

// Logout завершает сессию. Локальные неотправленные отметки сохраняются.
func (a *App) Logout(ctx context.Context) error {
	if err := a.httpClient.Logout(ctx); err != nil && !IsConnectivity(err) && !IsUnauthorized(err) {
		a.log.Warn("Ошибка завершения сессии на сервере", "error", err)
	}

	if err := a.ClearToken(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	deviceID := a.state.DeviceID
	lastSync := a.state.LastSync
	a.state = &AppState{DeviceID: deviceID, LastSync: lastSync}
	return a.saveAppState()
}

// PullReference загружает объекты и сотрудников в локальный кэш
func (a *App) PullReference(ctx context.Context) (int, int, error) {
	sites, err := a.httpClient.Sites(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка загрузки объектов: %w", err)
	}
	if err := a.ledger.UpsertSites(ctx, sites); err != nil {
		return 0, 0, err
	}

	employees, err := a.httpClient.Employees(ctx, "")
	if err != nil {
		return len(sites), 0, fmt.Errorf("ошибка загрузки сотрудников: %w", err)
	}
	if err := a.ledger.UpsertEmployees(ctx, employees); err != nil {
		return len(sites), 0, err
	}

	a.log.Info("Справочники обновлены", "sites", len(sites), "employees", len(employees))
	return len(sites), len(employees), nil
}

// Sites объекты из локального кэша
func (a *App) Sites(ctx context.Context) ([]site.Site, error) {
	return a.ledger.Sites(ctx)
}

// Employees активные сотрудники текущего объекта
func (a *App) Employees(ctx context.Context) ([]site.Employee, error) {
	siteID := a.State().SiteID
	if siteID == "" {
		return nil, attendance.ErrNoActiveSite
	}
	return a.ledger.EmployeesBySite(ctx, siteID)
}

// UseSite делает объект текущим
func (a *App) UseSite(ctx context.Context, siteID string) error {
	st := a.State()
	if len(st.AssignedSites) > 0 && !slices.Contains(st.AssignedSites, siteID) {
		return attendance.ErrSiteNotAssigned
	}

	if err := a.activate(ctx, siteID); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.SiteID = siteID
	return a.saveAppState()
}

func (a *App) activate(ctx context.Context, siteID string) error {
	s, err := a.ledger.SiteByID(ctx, siteID)
	if err != nil {
		return fmt.Errorf("объект %s: %w", siteID, err)
	}

	st := a.State()
	a.sampler.Use(s, Identity{SupervisorID: st.SupervisorID, SupervisorName: st.SupervisorName})

	if err := a.notifier.JoinSite(siteID); err != nil {
		a.log.Warn("join_site failed", "site_id", siteID, "error", err)
	}
	return nil
}

// ActiveSite текущий объект
func (a *App) ActiveSite(ctx context.Context) (site.Site, error) {
	siteID := a.State().SiteID
	if siteID == "" {
		return site.Site{}, attendance.ErrNoActiveSite
	}
	return a.ledger.SiteByID(ctx, siteID)
}

// Locate снимает точку. Переданная точка используется, если источник статический.
func (a *App) Locate(ctx context.Context, sample *geofence.Sample) (geofence.Transition, error) {
	if static, ok := a.source.(*StaticSource); ok && sample != nil {
		static.Set(*sample)
	}
	return a.sampler.Sample(ctx)
}

// Geofence текущий статус геозоны
func (a *App) Geofence() (geofence.Gate, float64) {
	_, distance, _ := a.monitor.Last()
	return a.monitor.Gate(), distance
}

// MarkPresent отмечает присутствие сотрудника на текущем объекте
func (a *App) MarkPresent(ctx context.Context, employeeID, photoRef string) (MarkResult, error) {
	st := a.State()
	if st.SiteID == "" {
		return MarkResult{Outcome: MarkRejected}, attendance.ErrNoActiveSite
	}

	if a.monitor.Gate() == geofence.GateAwaitingFix {
		if _, err := a.sampler.Sample(ctx); err != nil && !errors.Is(err, ErrNoFix) {
			a.log.Warn("location sample failed", "error", err)
		}
	}

	return a.marker.MarkPresent(ctx, MarkRequest{
		EmployeeID:     employeeID,
		SiteID:         st.SiteID,
		PhotoRef:       photoRef,
		DeviceID:       st.DeviceID,
		SupervisorName: st.SupervisorName,
	})
}

// Refresh строит сводку присутствия текущего объекта за сегодня
func (a *App) Refresh(ctx context.Context) (attendance.View, error) {
	siteID := a.State().SiteID
	if siteID == "" {
		return attendance.View{}, attendance.ErrNoActiveSite
	}
	return a.refresh(ctx, siteID, a.marker.Today())
}

// Pending неотправленные отметки
func (a *App) Pending(ctx context.Context) ([]attendance.Record, error) {
	return a.ledger.UnsyncedAttendance(ctx)
}

// Sync выполняет синхронизацию немедленно
func (a *App) Sync(ctx context.Context) *SyncResult {
	return a.sync.Run(ctx)
}

func (a *App) SyncStatus(ctx context.Context) (SyncStatus, error) {
	pending, err := a.ledger.CountUnsynced(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	logs, err := a.ledger.LocationLogs(ctx)
	if err != nil {
		return SyncStatus{}, err
	}

	st := a.State()
	return SyncStatus{
		Pending:          pending,
		PendingLocations: len(logs),
		LastSync:         st.LastSync,
		LastError:        st.LastSyncError,
		LastErrorKind:    st.LastErrorKind,
		Stats:            a.sync.Stats(),
	}, nil
}

// Reset полностью очищает локальное хранилище
func (a *App) Reset(ctx context.Context) error {
	if err := a.ledger.Reset(ctx); err != nil {
		return err
	}
	a.monitor.Reset()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastView = nil
	a.state.SiteID = ""
	a.state.LastSync = time.Time{}
	a.state.LastSyncError = ""
	a.state.LastErrorKind = attendance.KindNone
	return a.saveAppState()
}
