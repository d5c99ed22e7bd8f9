package attendance

import "sitekeeper/internal/domain/attendance"

type listInput struct {
	SiteID       string `query:"site" doc:"Объект"`
	EmployeeID   string `query:"employee" doc:"Сотрудник"`
	Month        int    `query:"month" minimum:"0" maximum:"12"`
	Year         int    `query:"year" minimum:"0"`
	UpdatedAfter string `query:"updatedAfter" doc:"RFC3339, только измененные записи"`
}

type listOutput struct {
	Body []attendance.RemoteRecord
}

type syncInput struct {
	Body []attendance.SyncItem
}

type syncOutput struct {
	Body attendance.SyncResponse
}
