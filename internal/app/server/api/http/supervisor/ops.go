package supervisor

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) loginOp() huma.Operation {
	return huma.Operation{
		OperationID: "supervisor-login",
		Method:      http.MethodPost,
		Path:        "/api/supervisor/login",
		Summary:     "Вход супервайзера",
		Tags:        []string{"supervisor"},
		Middlewares: h.public,
	}
}

func (h *Handler) logoutOp() huma.Operation {
	return huma.Operation{
		OperationID: "supervisor-logout",
		Method:      http.MethodPost,
		Path:        "/api/supervisor/logout",
		Summary:     "Завершение сессии",
		Tags:        []string{"supervisor"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.private,
	}
}

func (h *Handler) locationOp() huma.Operation {
	return huma.Operation{
		OperationID: "supervisor-location",
		Method:      http.MethodPost,
		Path:        "/api/supervisor/location",
		Summary:     "Запись журнала перемещений",
		Tags:        []string{"supervisor"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.private,
	}
}
