package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"sitekeeper/internal/app/client/config"
	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/site"
	"sitekeeper/internal/domain/supervisor"
)

// RemoteError ответ сервера со статусом ошибки
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ошибка сервера (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ошибка сервера: статус %d", e.StatusCode)
}

// ConnectivityError сервер недоступен: сеть, таймаут, обрыв соединения
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("сервер недоступен: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &httpClient{
		client:    client,
		log:       log.With(slog.String("component", "http_client")),
		baseURL:   scheme + cfg.ServerAddress + "/api",
		userAgent: "Sitekeeper-Client/1.0",
	}
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *httpClient) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, "/v1/health", nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) Login(ctx context.Context, req supervisor.LoginRequest) (supervisor.LoginResponse, error) {
	var out supervisor.LoginResponse

	resp, err := h.doRequest(ctx, http.MethodPost, "/supervisor/login", req)
	if err != nil {
		return out, err
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return out, err
	}
	if out.Token == "" {
		return out, fmt.Errorf("сервер не вернул токен")
	}

	return out, nil
}

func (h *httpClient) Logout(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodPost, "/supervisor/logout", nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) Sites(ctx context.Context) ([]site.Site, error) {
	var out []site.Site
	resp, err := h.doRequest(ctx, http.MethodGet, "/sites", nil)
	if err != nil {
		return nil, err
	}
	return out, h.parseResponse(resp, &out)
}

func (h *httpClient) Employees(ctx context.Context, siteID string) ([]site.Employee, error) {
	q := url.Values{}
	if siteID != "" {
		q.Set("site", siteID)
	}

	var out []site.Employee
	resp, err := h.doRequest(ctx, http.MethodGet, "/employees?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return out, h.parseResponse(resp, &out)
}

// AttendanceBySite посещаемость объекта за месяц
func (h *httpClient) AttendanceBySite(ctx context.Context, siteID string, month, year int) ([]attendance.RemoteRecord, error) {
	q := url.Values{}
	q.Set("site", siteID)
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	return h.listAttendance(ctx, q)
}

// AttendanceForEmployee посещаемость сотрудника за месяц
func (h *httpClient) AttendanceForEmployee(ctx context.Context, employeeID string, month, year int) ([]attendance.RemoteRecord, error) {
	q := url.Values{}
	q.Set("employee", employeeID)
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	return h.listAttendance(ctx, q)
}

func (h *httpClient) listAttendance(ctx context.Context, q url.Values) ([]attendance.RemoteRecord, error) {
	var out []attendance.RemoteRecord
	resp, err := h.doRequest(ctx, http.MethodGet, "/attendance?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return out, h.parseResponse(resp, &out)
}

// SyncAttendance отправляет пакет отметок. Пустое тело ответа
// возвращается как ErrEmptyResponse.
func (h *httpClient) SyncAttendance(ctx context.Context, items []attendance.SyncItem) (attendance.SyncResponse, error) {
	var out attendance.SyncResponse

	resp, err := h.doRequest(ctx, http.MethodPost, "/attendance/sync", items)
	if err != nil {
		return out, err
	}

	body, err := h.readBody(resp)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, attendance.ErrEmptyResponse
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("ошибка парсинга ответа: %w", err)
	}

	return out, nil
}

func (h *httpClient) PostLocation(ctx context.Context, req attendance.LocationRequest) error {
	resp, err := h.doRequest(ctx, http.MethodPost, "/supervisor/location", req)
	if err != nil {
		return err
	}

	body, err := h.readBody(resp)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return attendance.ErrEmptyResponse
	}

	return nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if token := h.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}

	return resp, nil
}

// readBody читает тело ответа и превращает статусы >= 400 в *RemoteError
func (h *httpClient) readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, remoteError(resp.StatusCode, body)
	}

	return body, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	body, err := h.readBody(resp)
	if err != nil {
		return err
	}

	if result != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}

func remoteError(status int, body []byte) *RemoteError {
	var errResp struct {
		Error  string `json:"error"`
		Code   string `json:"code"`
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}

	re := &RemoteError{StatusCode: status}
	if err := json.Unmarshal(body, &errResp); err == nil {
		re.Code = errResp.Code
		switch {
		case errResp.Error != "":
			re.Message = errResp.Error
		case errResp.Detail != "":
			re.Message = errResp.Detail
		default:
			re.Message = errResp.Title
		}
	} else {
		re.Message = strings.TrimSpace(string(body))
	}

	return re
}

// IsConnectivity ошибка связи с сервером
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded)
}

// IsUnauthorized сервер отклонил токен
func IsUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == http.StatusUnauthorized
}
