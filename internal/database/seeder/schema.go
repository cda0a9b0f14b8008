package seeder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/database"
)

// ErrSchemaMismatch is returned when the database lacks columns the seed
// writes, typically because migrations have not been applied.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ontologyColumns lists, per table, the columns the ontology seed writes.
var ontologyColumns = map[string][]string{
	"ontology_skills": {
		"name", "type", "aliases", "learning_resources", "mention_frequency", "last_seen_in_market",
	},
	"ontology_job_roles": {
		"id", "title", "description", "salary_low", "salary_high", "experience_level", "skill_weights",
	},
}

// ensureOntologySchema checks every ontology table at once and reports all
// missing columns in a single error.
func ensureOntologySchema(ctx context.Context, db database.DB) error {
	tables := make([]string, 0, len(ontologyColumns))
	for t := range ontologyColumns {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var missing []string
	for _, table := range tables {
		have, err := tableColumns(ctx, db, table)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		for _, col := range ontologyColumns[table] {
			if _, ok := have[col]; !ok {
				missing = append(missing, table+"."+col)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s (run `nextstep migrate`)", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}

func tableColumns(ctx context.Context, db database.DB, table string) (map[string]struct{}, error) {
	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1`,
		table,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out[c] = struct{}{}
	}
	return out, rows.Err()
}
