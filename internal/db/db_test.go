package db

import (
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wellness.report/internal/dataset"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "wellness.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var (
	testCenters = []dataset.Center{
		{Name: "Alpha", Extra: map[string]string{"Capacity": "40"}},
		{Name: "Beta"},
	}
	testBeneficiaries = []dataset.Beneficiary{
		{Center: "Alpha", City: "Pune"},
		{Center: "Beta", City: "Delhi"},
		{Center: "Alpha", City: "Pune"},
	}
)

func TestEmbeddedMigrationsFS(t *testing.T) {
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	ups, err := fs.Glob(migrations, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrations, "*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestNewDB_MigratesAndSetsPragmas(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"datasets", "centers", "beneficiaries"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n))
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := NewDB(path)
	require.NoError(t, err)
	_, err = first.ImportDataset("march", testCenters, testBeneficiaries)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewDB(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.LoadBeneficiaries("march")
	require.NoError(t, err)
	assert.Equal(t, testBeneficiaries, got)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	require.NoError(t, db.MigrateDown(migrations))
	version, _, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	require.NoError(t, db.MigrateUp(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestOpenDB_NoSchema(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

func TestImportAndLoadDataset(t *testing.T) {
	db := setupTestDB(t)

	id, err := db.ImportDataset("  march  ", testCenters, testBeneficiaries)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	centers, err := db.LoadCenters("march")
	require.NoError(t, err)
	if diff := cmp.Diff(testCenters, centers); diff != "" {
		t.Errorf("LoadCenters() mismatch (-want +got):\n%s", diff)
	}

	beneficiaries, err := db.LoadBeneficiaries("march")
	require.NoError(t, err)
	if diff := cmp.Diff(testBeneficiaries, beneficiaries); diff != "" {
		t.Errorf("LoadBeneficiaries() mismatch (-want +got):\n%s", diff)
	}

	infos, err := db.ListDatasets()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)
	assert.Equal(t, "march", infos[0].Name)
	assert.Equal(t, 2, infos[0].Centers)
	assert.Equal(t, 3, infos[0].Beneficiaries)
	assert.False(t, infos[0].CreatedAt.IsZero())
}

func TestImportDataset_ReplacesSameName(t *testing.T) {
	db := setupTestDB(t)

	firstID, err := db.ImportDataset("march", testCenters, testBeneficiaries)
	require.NoError(t, err)

	replacement := []dataset.Beneficiary{{Center: "Gamma", City: "Agra"}}
	secondID, err := db.ImportDataset("march", nil, replacement)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	got, err := db.LoadBeneficiaries("march")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	centers, err := db.LoadCenters("march")
	require.NoError(t, err)
	assert.Empty(t, centers)

	var orphans int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM beneficiaries WHERE dataset_id = ?`, firstID).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestImportDataset_RequiresName(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.ImportDataset("   ", testCenters, testBeneficiaries)
	assert.Error(t, err)
}

func TestDeleteDataset(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.ImportDataset("march", testCenters, testBeneficiaries)
	require.NoError(t, err)
	require.NoError(t, db.DeleteDataset("march"))

	_, err = db.LoadBeneficiaries("march")
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	err = db.DeleteDataset("march")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	infos, err := db.ListDatasets()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.ImportDataset("march", testCenters, testBeneficiaries)
	require.NoError(t, err)

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.NotEqual(t, http.StatusNotFound, w.Code, "backup route should be registered")
	if w.Code != http.StatusOK {
		// tsweb restricts debug routes to trusted peers
		return
	}
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, len(body) > 16 && string(body[:15]) == "SQLite format 3")

	req = httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}
