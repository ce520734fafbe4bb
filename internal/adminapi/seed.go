package adminapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvironmentSpec is the on-disk form of a seeded environment. Operators
// check these into the deploy repo; the admin-service upserts them at boot.
type EnvironmentSpec struct {
	Name              string   `json:"name" yaml:"name"`
	PrimaryDomain     string   `json:"primary_domain" yaml:"primary_domain"`
	AdditionalDomains []string `json:"additional_domains" yaml:"additional_domains"`
	IsActive          *bool    `json:"is_active,omitempty" yaml:"is_active,omitempty"`
}

func loadEnvironmentSpecs(dir string) ([]EnvironmentSpec, error) {
	if dir == "" {
		return nil, nil
	}
	out := []EnvironmentSpec{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var spec EnvironmentSpec
		if ext == ".json" {
			if err := json.Unmarshal(b, &spec); err != nil {
				return err
			}
		} else {
			if err := yaml.Unmarshal(b, &spec); err != nil {
				return fmt.Errorf("yaml parse: %w", err)
			}
		}
		if spec.PrimaryDomain != "" {
			out = append(out, spec)
		}
		return nil
	})
	return out, err
}

// importEnvironmentsFromDir loads specs from a directory and upserts them.
func importEnvironmentsFromDir(ctx context.Context, db *pgxpool.Pool, log *zap.SugaredLogger, dir string) error {
	specs, err := loadEnvironmentSpecs(dir)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return nil
	}
	for _, s := range specs {
		active := true
		if s.IsActive != nil {
			active = *s.IsActive
		}
		var id int64
		if err := db.QueryRow(ctx, `
			INSERT INTO environments (name, primary_domain, is_active)
			VALUES ($1,$2,$3)
			ON CONFLICT (primary_domain) DO UPDATE SET
			  name=EXCLUDED.name,
			  is_active=EXCLUDED.is_active,
			  updated_at=NOW()
			RETURNING id
		`, s.Name, s.PrimaryDomain, active).Scan(&id); err != nil {
			return err
		}
		for i, dom := range s.AdditionalDomains {
			if _, err := db.Exec(ctx, `
				INSERT INTO environment_domains (environment_id, domain, position)
				VALUES ($1,$2,$3)
				ON CONFLICT (domain) DO UPDATE SET position=EXCLUDED.position
			`, id, dom, i); err != nil {
				return err
			}
		}
	}
	log.Infof("imported %d environments from %s", len(specs), dir)
	return nil
}
