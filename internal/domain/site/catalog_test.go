package site

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

const catalogYAML = `
sites:
  - id: site-1
    name: Tower A
    location: Whitefield
    latitude: 12.9698
    longitude: 77.7500
    geofenceRadius: 200
employees:
  - id: emp-1
    biometricCode: "1001"
    name: Ravi
    role: Guard
    siteId: site-1
  - id: emp-2
    name: Meena
    siteId: site-1
    status: Inactive
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	require.Len(t, c.Sites, 1)
	assert.Equal(t, 200.0, c.Sites[0].GeofenceRadius)
	require.Len(t, c.Employees, 2)
	assert.Equal(t, "1001", c.Employees[0].BiometricCode)
	assert.Equal(t, EmployeeInactive, c.Employees[1].Status)
	assert.NoError(t, c.Validate())
}

func TestParseCatalog_UnknownField(t *testing.T) {
	_, err := ParseCatalog(strings.NewReader("sites:\n  - id: s1\n    radius: 10\n"))
	assert.Error(t, err)
}

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
		wantErr error
	}{
		{
			name:    "zero radius",
			catalog: Catalog{Sites: []Site{{ID: "s1"}}},
			wantErr: ErrInvalidRadius,
		},
		{
			name: "employee of unknown site",
			catalog: Catalog{
				Sites:     []Site{{ID: "s1", GeofenceRadius: 50}},
				Employees: []Employee{{ID: "e1", Name: "Ravi", SiteID: "s2"}},
			},
			wantErr: ErrNotFound,
		},
		{
			name: "employee without name",
			catalog: Catalog{
				Sites:     []Site{{ID: "s1", GeofenceRadius: 50}},
				Employees: []Employee{{ID: "e1", SiteID: "s1"}},
			},
			wantErr: ErrEmptyReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.catalog.Validate(), tt.wantErr)
		})
	}
}

func TestService_Import(t *testing.T) {
	t.Run("saves sites and employees", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, slog.Default())
		c, err := ParseCatalog(strings.NewReader(catalogYAML))
		require.NoError(t, err)

		repo.On("SaveSite", mock.Anything, mock.MatchedBy(func(s Site) bool { return s.ID == "site-1" })).Return(nil)
		repo.On("SaveEmployee", mock.Anything, mock.MatchedBy(func(e Employee) bool {
			return e.ID == "emp-1" && e.Status == EmployeeActive
		})).Return(nil)
		repo.On("SaveEmployee", mock.Anything, mock.MatchedBy(func(e Employee) bool {
			return e.ID == "emp-2" && e.Status == EmployeeInactive
		})).Return(nil)

		res, err := svc.Import(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, ImportResult{Sites: 1, Employees: 2}, res)
		repo.AssertExpectations(t)
	})

	t.Run("invalid catalog is not saved", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, slog.Default())

		_, err := svc.Import(context.Background(), Catalog{Sites: []Site{{ID: "s1"}}})
		assert.ErrorIs(t, err, ErrInvalidRadius)
		repo.AssertNotCalled(t, "SaveSite", mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, slog.Default())
		repo.On("SaveSite", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := svc.Import(context.Background(), Catalog{Sites: []Site{{ID: "s1", GeofenceRadius: 10}}})
		assert.Error(t, err)
	})
}
