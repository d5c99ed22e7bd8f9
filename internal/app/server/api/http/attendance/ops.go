package attendance

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-attendance",
		Method:      http.MethodGet,
		Path:        "/api/attendance",
		Summary:     "Посещаемость за месяц",
		Tags:        []string{"attendance"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) syncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-attendance",
		Method:      http.MethodPost,
		Path:        "/api/attendance/sync",
		Summary:     "Загрузка отметок с устройства",
		Tags:        []string{"attendance"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
