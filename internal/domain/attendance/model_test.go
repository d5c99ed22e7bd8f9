package attendance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteRecord_UnmarshalJSON_LockedByDefault(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		locked bool
	}{
		{name: "missing flag", input: `{"id":"1","employeeId":"e1","date":"2024-05-10","status":"P"}`, locked: true},
		{name: "explicit true", input: `{"id":"1","employeeId":"e1","isLocked":true}`, locked: true},
		{name: "explicit false", input: `{"id":"1","employeeId":"e1","isLocked":false}`, locked: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec RemoteRecord
			require.NoError(t, json.Unmarshal([]byte(tt.input), &rec))
			assert.Equal(t, "e1", rec.EmployeeID)
			assert.Equal(t, tt.locked, rec.IsLocked)
		})
	}
}

func TestRemoteRecord_UnmarshalJSON_List(t *testing.T) {
	var list []RemoteRecord
	err := json.Unmarshal([]byte(`[{"employeeId":"e1","checkInTime":"09:15"},{"employeeId":"e2","isLocked":false}]`), &list)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsLocked)
	assert.Equal(t, "09:15", list[0].CheckInTime)
	assert.False(t, list[1].IsLocked)
}

func TestFromRecord(t *testing.T) {
	rec := Record{
		EmployeeID:     "e1",
		SiteID:         "site-1",
		Date:           "2024-05-10",
		Status:         StatusPresent,
		Direction:      DirectionIn,
		Latitude:       12.5,
		Longitude:      77.5,
		DeviceID:       "dev-1",
		SupervisorName: "Ravi",
	}

	item := FromRecord(rec, "payload-1", "data:image/jpeg;base64,AAAA")
	assert.Equal(t, "payload-1", item.ID)
	assert.Equal(t, DirectionIn, item.Type)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", item.PhotoURL)
	require.NotNil(t, item.Location)
	assert.Equal(t, 12.5, item.Location.Lat)
	assert.Equal(t, 77.5, item.Location.Lng)
}
