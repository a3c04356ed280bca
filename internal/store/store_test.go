package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/homesphere/homesphere/internal/database"
	"github.com/homesphere/homesphere/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, users *UserStore, name string) *model.User {
	t.Helper()
	u, err := users.Create(name, name+"@example.com", "hash", name+"-token", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}
