package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/Blaze-0903/NextStepAI/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// columnsDB answers information_schema lookups from a fixed table map.
type columnsDB struct {
	database.DB
	tables map[string][]string
	err    error
}

func (d columnsDB) Query(_ context.Context, _ string, args ...any) (database.Rows, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &stringRows{vals: d.tables[args[0].(string)]}, nil
}

type stringRows struct {
	vals []string
	i    int
}

func (r *stringRows) Close()     {}
func (r *stringRows) Err() error { return nil }
func (r *stringRows) Next() bool {
	r.i++
	return r.i <= len(r.vals)
}

func (r *stringRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.vals[r.i-1]
	return nil
}

func TestEnsureOntologySchema(t *testing.T) {
	full := map[string][]string{}
	for table, cols := range ontologyColumns {
		full[table] = append([]string{"created_at"}, cols...)
	}
	require.NoError(t, ensureOntologySchema(context.Background(), columnsDB{tables: full}))

	partial := map[string][]string{
		"ontology_skills":    {"name", "type"},
		"ontology_job_roles": ontologyColumns["ontology_job_roles"],
	}
	err := ensureOntologySchema(context.Background(), columnsDB{tables: partial})
	require.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "ontology_skills.aliases")
	assert.Contains(t, err.Error(), "ontology_skills.last_seen_in_market")
	assert.NotContains(t, err.Error(), "ontology_job_roles.")

	boom := errors.New("connection reset")
	err = ensureOntologySchema(context.Background(), columnsDB{err: boom})
	assert.ErrorIs(t, err, boom)
}
