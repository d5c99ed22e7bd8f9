package attendance

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"sitekeeper/internal/domain/attendance"
	"sitekeeper/internal/domain/site"
)

func TestRenderView(t *testing.T) {
	view := attendance.NewView("site-1", "2026-03-02", attendance.SourceRemote)
	view.Entries["emp-1"] = attendance.Entry{
		Status:      attendance.StatusPresent,
		CheckInTime: "2026-03-02T08:00:00Z",
		IsSynced:    true,
		IsLocked:    true,
	}
	view.Entries["emp-2"] = attendance.Entry{
		Status:      attendance.StatusPresent,
		CheckInTime: "2026-03-02T09:15:30Z",
	}
	view.Entries["emp-9"] = attendance.Entry{
		Status:   attendance.StatusAbsent,
		IsSynced: true,
	}

	employees := []site.Employee{
		{ID: "emp-1", Name: "Bob"},
		{ID: "emp-2", Name: "Carol"},
		{ID: "emp-3", Name: "Dave"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderView(&buf, view, employees, time.UTC))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "today", buf.Bytes())
}

func TestRenderView_LocalOnlyEmpty(t *testing.T) {
	view := attendance.NewView("site-2", "2026-03-03", attendance.SourceLocalOnly)

	var buf bytes.Buffer
	require.NoError(t, RenderView(&buf, view, nil, time.UTC))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "today_empty", buf.Bytes())
}
