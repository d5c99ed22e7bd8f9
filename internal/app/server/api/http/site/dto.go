package site

import "sitekeeper/internal/domain/site"

type sitesInput struct{}

type sitesOutput struct {
	Body []site.Site
}

type employeesInput struct {
	SiteID string `query:"site" doc:"Фильтр по объекту"`
	Active bool   `query:"active" doc:"Только активные сотрудники"`
}

type employeesOutput struct {
	Body []site.Employee
}
