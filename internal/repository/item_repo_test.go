package repository

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

// openDryRun builds a gorm instance that only renders SQL, and captures the
// statement of every query it builds.
func openDryRun(t *testing.T, captured *string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	err = db.Callback().Query().After("gorm:query").Register("capture_sql", func(tx *gorm.DB) {
		*captured = tx.Statement.SQL.String()
	})
	if err != nil {
		t.Fatalf("register capture callback: %v", err)
	}
	return db.Session(&gorm.Session{DryRun: true})
}

func TestFindByIDForUpdateEmitsRowLock(t *testing.T) {
	var captured string
	db := openDryRun(t, &captured)
	repo := NewItemRepo(db)

	repo.FindByIDForUpdate(db, uuid.New())

	if captured == "" {
		t.Fatal("no query was built")
	}
	if !strings.Contains(captured, "FOR UPDATE") {
		t.Fatalf("locking read must render a FOR UPDATE clause, got: %s", captured)
	}
}

func TestFindByIDDoesNotLock(t *testing.T) {
	var captured string
	db := openDryRun(t, &captured)
	repo := NewItemRepo(db)

	repo.FindByID(uuid.New())

	if strings.Contains(captured, "FOR UPDATE") {
		t.Fatalf("plain read must not lock, got: %s", captured)
	}
}
