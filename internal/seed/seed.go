// Package seed loads reference data (assistants, plans, countries, languages)
// from YAML files and upserts it at boot. Seeding is idempotent; rows are
// matched by their natural keys.
package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rosklyar/prompts-volume/internal/adapter/repo/postgres"
	obsctx "github.com/rosklyar/prompts-volume/internal/observability"
)

// Assistant is one AI assistant with its plan names.
type Assistant struct {
	Name  string   `yaml:"name"`
	Plans []string `yaml:"plans"`
}

// Language is one supported answer language.
type Language struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Country is one supported country with its language codes in priority order.
type Country struct {
	Code      string   `yaml:"code"`
	Name      string   `yaml:"name"`
	Languages []string `yaml:"languages"`
}

// Data is the merged content of all seed files in a directory.
type Data struct {
	Assistants []Assistant `yaml:"assistants"`
	Languages  []Language  `yaml:"languages"`
	Countries  []Country   `yaml:"countries"`
}

// Load reads and merges every .yaml/.yml file in dir. A missing directory is
// not an error; it simply yields no data.
func Load(dir string) (Data, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Data{}, nil
		}
		return Data{}, fmt.Errorf("op=seed.load: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var merged Data
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Data{}, fmt.Errorf("op=seed.load: %w", err)
		}
		part, err := Parse(raw)
		if err != nil {
			return Data{}, fmt.Errorf("op=seed.load: %s: %w", name, err)
		}
		merged.Assistants = append(merged.Assistants, part.Assistants...)
		merged.Languages = append(merged.Languages, part.Languages...)
		merged.Countries = append(merged.Countries, part.Countries...)
	}
	return merged, nil
}

// Parse decodes one seed document.
func Parse(raw []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("op=seed.parse: %w", err)
	}
	return d, nil
}

// Apply upserts the seed data: assistants and plans into the evals store,
// countries and languages into the prompts store.
func Apply(ctx context.Context, prompts, evals postgres.PgxPool, d Data) error {
	for _, a := range d.Assistants {
		var assistantID int64
		q := `INSERT INTO ai_assistants (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`
		if err := evals.QueryRow(ctx, q, a.Name).Scan(&assistantID); err != nil {
			return fmt.Errorf("op=seed.assistant %s: %w", a.Name, err)
		}
		for _, plan := range a.Plans {
			q := `INSERT INTO ai_assistant_plans (assistant_id, name) VALUES ($1, $2)
				ON CONFLICT (assistant_id, name) DO NOTHING`
			if _, err := evals.Exec(ctx, q, assistantID, plan); err != nil {
				return fmt.Errorf("op=seed.plan %s/%s: %w", a.Name, plan, err)
			}
		}
	}

	langIDs := make(map[string]int64, len(d.Languages))
	for _, l := range d.Languages {
		var id int64
		q := `INSERT INTO languages (code, name) VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`
		if err := prompts.QueryRow(ctx, q, l.Code, l.Name).Scan(&id); err != nil {
			return fmt.Errorf("op=seed.language %s: %w", l.Code, err)
		}
		langIDs[l.Code] = id
	}

	for _, c := range d.Countries {
		var countryID int64
		q := `INSERT INTO countries (code, name) VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`
		if err := prompts.QueryRow(ctx, q, c.Code, c.Name).Scan(&countryID); err != nil {
			return fmt.Errorf("op=seed.country %s: %w", c.Code, err)
		}
		for ord, code := range c.Languages {
			langID, ok := langIDs[code]
			if !ok {
				return fmt.Errorf("op=seed.country %s: unknown language %q", c.Code, code)
			}
			q := `INSERT INTO country_languages (country_id, language_id, ord) VALUES ($1, $2, $3)
				ON CONFLICT (country_id, language_id) DO UPDATE SET ord = EXCLUDED.ord`
			if _, err := prompts.Exec(ctx, q, countryID, langID, ord); err != nil {
				return fmt.Errorf("op=seed.country_language %s/%s: %w", c.Code, code, err)
			}
		}
	}

	obsctx.LoggerFromContext(ctx).Info("seed applied",
		"assistants", len(d.Assistants), "languages", len(d.Languages), "countries", len(d.Countries))
	return nil
}
