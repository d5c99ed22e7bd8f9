package site

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) sitesOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-sites",
		Method:      http.MethodGet,
		Path:        "/api/sites",
		Summary:     "Объекты супервайзера",
		Tags:        []string{"sites"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) employeesOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/api/employees",
		Summary:     "Сотрудники объектов",
		Tags:        []string{"sites"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
