package migration

import (
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ai-teammate/google-signin/migrations"
)

// stubMigrator is a test double for Migrator.
type stubMigrator struct {
	upErr      error
	version    uint
	dirty      bool
	versionErr error
}

func (s *stubMigrator) Up() error { return s.upErr }

func (s *stubMigrator) Version() (uint, bool, error) { return s.version, s.dirty, s.versionErr }

func stubMaker(m *stubMigrator) migrateMaker {
	return func(_ *sql.DB, _ fs.FS) (Migrator, error) {
		return m, nil
	}
}

// errorMaker simulates a failure during Migrator construction.
func errorMaker(makeErr error) migrateMaker {
	return func(_ *sql.DB, _ fs.FS) (Migrator, error) {
		return nil, makeErr
	}
}

// emptyFS is used when the maker is fully stubbed.
var emptyFS = fstest.MapFS{}

func quietLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

// TestRunMigrationsPublic_PropagatesError verifies that RunMigrations
// propagates errors from defaultMakeMigrator when the database is
// unreachable: postgres.WithInstance pings the DB.
func TestRunMigrationsPublic_PropagatesError(t *testing.T) {
	db, err := sql.Open("postgres",
		"host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable connect_timeout=1")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	log, _ := quietLogger()
	if err := RunMigrations(db, migrations.FS, log); err == nil {
		t.Fatal("expected error for unreachable DB, got nil")
	}
}

func TestEmbeddedMigrations_Present(t *testing.T) {
	for _, name := range []string{
		"0001_create_directory_users.up.sql",
		"0001_create_directory_users.down.sql",
	} {
		if _, err := fs.Stat(migrations.FS, name); err != nil {
			t.Errorf("embedded migration %s: %v", name, err)
		}
	}
}

func TestRunMigrations_Success(t *testing.T) {
	log, hook := quietLogger()
	if err := runMigrations(nil, emptyFS, log, stubMaker(&stubMigrator{version: 1})); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Data["version"] != uint(1) {
		t.Errorf("expected version 1 to be logged, got %+v", entry)
	}
}

func TestRunMigrations_NoChange(t *testing.T) {
	// ErrNoChange means the schema is already current.
	log, _ := quietLogger()
	m := &stubMigrator{upErr: migrate.ErrNoChange, version: 1}
	if err := runMigrations(nil, emptyFS, log, stubMaker(m)); err != nil {
		t.Fatalf("expected no error on ErrNoChange, got %v", err)
	}
}

func TestRunMigrations_UpError(t *testing.T) {
	log, _ := quietLogger()
	upErr := errors.New("dirty database")
	err := runMigrations(nil, emptyFS, log, stubMaker(&stubMigrator{upErr: upErr}))
	if !errors.Is(err, upErr) {
		t.Errorf("expected wrapped upErr, got %v", err)
	}
}

func TestRunMigrations_MakerError(t *testing.T) {
	log, _ := quietLogger()
	makeErr := errors.New("driver init failed")
	err := runMigrations(nil, emptyFS, log, errorMaker(makeErr))
	if !errors.Is(err, makeErr) {
		t.Errorf("expected wrapped makeErr, got %v", err)
	}
}

func TestRunMigrations_NilVersionIsFine(t *testing.T) {
	log, _ := quietLogger()
	m := &stubMigrator{upErr: migrate.ErrNoChange, versionErr: migrate.ErrNilVersion}
	if err := runMigrations(nil, emptyFS, log, stubMaker(m)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRunMigrations_Dirty(t *testing.T) {
	log, _ := quietLogger()
	m := &stubMigrator{version: 1, dirty: true}
	if err := runMigrations(nil, emptyFS, log, stubMaker(m)); err == nil {
		t.Fatal("expected error for dirty schema, got nil")
	}
}
