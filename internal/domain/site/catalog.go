package site

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Catalog справочник объектов и сотрудников для загрузки на сервер
type Catalog struct {
	Sites     []Site     `yaml:"sites"`
	Employees []Employee `yaml:"employees"`
}

type ImportResult struct {
	Sites     int
	Employees int
}

func ParseCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		return c, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

// Validate проверяет объекты и привязку сотрудников к объектам справочника
func (c Catalog) Validate() error {
	known := make(map[string]struct{}, len(c.Sites))
	for _, s := range c.Sites {
		if err := s.Validate(); err != nil {
			return err
		}
		known[s.ID] = struct{}{}
	}
	for _, e := range c.Employees {
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("employee %q: %w", e.ID, ErrEmptyReference)
		}
		if _, ok := known[e.SiteID]; !ok {
			return fmt.Errorf("employee %s: site %q: %w", e.ID, e.SiteID, ErrNotFound)
		}
	}
	return nil
}

// Import сохраняет справочник. Повторная загрузка обновляет записи.
func (s *Service) Import(ctx context.Context, c Catalog) (ImportResult, error) {
	var res ImportResult

	if err := c.Validate(); err != nil {
		return res, err
	}

	for _, item := range c.Sites {
		if err := s.repo.SaveSite(ctx, item); err != nil {
			return res, fmt.Errorf("save site %s: %w", item.ID, err)
		}
		res.Sites++
	}

	for _, e := range c.Employees {
		if e.Status == "" {
			e.Status = EmployeeActive
		}
		if err := s.repo.SaveEmployee(ctx, e); err != nil {
			return res, fmt.Errorf("save employee %s: %w", e.ID, err)
		}
		res.Employees++
	}

	s.log.Info("catalog imported", "sites", res.Sites, "employees", res.Employees)

	return res, nil
}
