package migration

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/Blaze-0903/NextStepAI/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_OrdersAndChecksums(t *testing.T) {
	fsys := fstest.MapFS{
		"V2__roles.sql":  {Data: []byte("CREATE TABLE b (id INT);\n")},
		"V1__skills.sql": {Data: []byte("  CREATE TABLE a (id INT);  ")},
		"README.md":      {Data: []byte("ignored")},
	}

	migs, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, int64(1), migs[0].Version)
	assert.Equal(t, "skills", migs[0].Name)
	assert.Equal(t, "CREATE TABLE a (id INT);", migs[0].SQL)
	assert.Len(t, migs[0].Checksum, 64)
	assert.Equal(t, int64(2), migs[1].Version)
}

func TestLoadMigrations_RejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{
		"V1__a.sql": {Data: []byte("SELECT 1")},
		"V1__b.sql": {Data: []byte("SELECT 2")},
	})
	assert.ErrorContains(t, err, "duplicate migration version")

	_, err = loadMigrations(fstest.MapFS{"V3__blank.sql": {Data: []byte("   ")}})
	assert.ErrorContains(t, err, "empty migration file")
}

func TestEmbeddedMigrationsDefineOntologyTables(t *testing.T) {
	migs, err := loadMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, migs)

	all := ""
	for _, m := range migs {
		all += m.SQL
	}
	for _, table := range []string{"ontology_skills", "ontology_job_roles", "pending_ontology_updates", "resume_analyses"} {
		assert.Contains(t, all, table)
	}
	assert.Contains(t, all, "WHERE status = 'pending'")
}

func TestRun_NilDB(t *testing.T) {
	assert.Error(t, Runner{FS: fstest.MapFS{}}.Run(context.Background(), nil))
}

func TestPlan_MarksAppliedAndRejectsEditedFiles(t *testing.T) {
	migs := []Migration{
		{Version: 1, Name: "skills", Checksum: "aaa"},
		{Version: 2, Name: "roles", Checksum: "bbb"},
	}

	states, err := plan(migs, map[int64]appliedMigration{1: {Version: 1, Checksum: "aaa"}})
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.True(t, states[0].Applied)
	assert.False(t, states[1].Applied)

	_, err = plan(migs, map[int64]appliedMigration{2: {Version: 2, Checksum: "changed"}})
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestStatus_NilDB(t *testing.T) {
	_, err := Runner{FS: fstest.MapFS{}}.Status(context.Background(), nil)
	assert.Error(t, err)
}
