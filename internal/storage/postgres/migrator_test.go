package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_more.up.sql":   {Data: []byte("CREATE TABLE test_b (id INT);")},
		"sql/migrations/0002_more.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_b;")},
		"sql/migrations/0001_init.up.sql":   {Data: []byte("CREATE TABLE test_a (id INT);")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_a;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, int64(1), migrations[0].Version)
	require.Equal(t, "init", migrations[0].Name)
	require.Equal(t, "more", migrations[1].Name)
	require.Equal(t, "DROP TABLE IF EXISTS test_b;", migrations[1].script(migrationDown))
}

func TestLoadMigrationsFromFS_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fsys    fstest.MapFS
		message string
	}{
		{
			name:    "missing down",
			fsys:    fstest.MapFS{"sql/migrations/0001_init.up.sql": {Data: []byte("SELECT 1;")}},
			message: "both up and down",
		},
		{
			name:    "invalid filename",
			fsys:    fstest.MapFS{"sql/migrations/not_a_migration.sql": {Data: []byte("SELECT 1;")}},
			message: "invalid migration file name",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   {Data: []byte("   \n")},
				"sql/migrations/0001_init.down.sql": {Data: []byte("SELECT 1;")},
			},
			message: "empty",
		},
		{
			name: "name mismatch",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":  {Data: []byte("SELECT 1;")},
				"sql/migrations/0001_other.down.sql": {Data: []byte("SELECT 1;")},
			},
			message: "name mismatch",
		},
		{
			name:    "no files",
			fsys:    fstest.MapFS{},
			message: "no migration files",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadMigrationsFromFS(tc.fsys)
			require.ErrorContains(t, err, tc.message)
		})
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, "schema", migrations[0].Name)
	require.Contains(t, migrations[0].UpSQL, "cart_items")
	require.Contains(t, migrations[1].UpSQL, "outbox_messages")
}

func TestPlanMigrations(t *testing.T) {
	all := []migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}

	plan, err := planMigrations(all, map[int64]bool{1: true}, migrationUp, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, versionsOf(plan))

	plan, err = planMigrations(all, map[int64]bool{}, migrationUp, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, versionsOf(plan))

	plan, err = planMigrations(all, map[int64]bool{1: true, 2: true}, migrationDown, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, versionsOf(plan))

	plan, err = planMigrations(all, map[int64]bool{1: true, 2: true, 3: true}, migrationDown, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2, 1}, versionsOf(plan))

	_, err = planMigrations(all, map[int64]bool{9: true}, migrationDown, 1)
	require.ErrorContains(t, err, "unknown migration version 9")
}

func versionsOf(ms []migration) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Version)
	}
	return out
}
