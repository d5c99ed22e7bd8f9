package attendance

import (
	"fmt"
	"io"
	"slices"
	"time"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/site"
)

const rowFormat = "%-8s %-16s %-6s %-5s %s\n"

// RenderView печатает сводку за день: сначала сотрудники объекта в порядке
// справочника, затем записи сотрудников, которых нет в кэше
func RenderView(w io.Writer, view attendance.View, employees []site.Employee, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	if _, err := fmt.Fprintf(w, "Объект: %s  Дата: %s  Источник: %s\n\n", view.SiteID, view.Date, view.Source); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, rowFormat, "ID", "Сотрудник", "Статус", "Время", "Выгрузка"); err != nil {
		return err
	}

	known := make(map[string]struct{}, len(employees))
	present := 0
	for _, e := range employees {
		known[e.ID] = struct{}{}
		entry, ok := view.Entries[e.ID]
		if ok && entry.Status == attendance.StatusPresent {
			present++
		}
		if err := renderRow(w, e.ID, e.Name, entry, ok, loc); err != nil {
			return err
		}
	}

	var extra []string
	for id := range view.Entries {
		if _, ok := known[id]; !ok {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	for _, id := range extra {
		if err := renderRow(w, id, "?", view.Entries[id], true, loc); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nПрисутствуют: %d из %d\n", present, len(employees))
	return err
}

func renderRow(w io.Writer, id, name string, entry attendance.Entry, ok bool, loc *time.Location) error {
	status, at, state := "-", "-", "-"
	if ok {
		status = string(entry.Status)
		if t, err := time.Parse(time.RFC3339, entry.CheckInTime); err == nil {
			at = t.In(loc).Format("15:04")
		}
		switch {
		case entry.IsLocked:
			state = "locked"
		case entry.IsSynced:
			state = "synced"
		default:
			state = "pending"
		}
	}

	_, err := fmt.Fprintf(w, rowFormat, id, name, status, at, state)
	return err
}
