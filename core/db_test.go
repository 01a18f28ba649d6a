package core

import (
	"path/filepath"
	"testing"
	"time"
)

type widget struct {
	ID        int64     `jorm:"column:id;pk;auto"`
	Name      string    `jorm:"column:name"`
	CreatedAt time.Time `jorm:"column:created_at;auto_time"`
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "core_test.db")
	db, err := Open("sqlite3", path, &Options{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Exercises Open -> AutoMigrate -> Model.Insert/Find/Update/Delete, i.e. the
// whole path from an ORM call down through db.pool's implicit checkout.
func TestDBCRUDThroughPool(t *testing.T) {
	db := openTestDB(t)

	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	w := &widget{Name: "cog"}
	id, err := db.Model(w).Insert(w)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a non-zero id")
	}

	var got widget
	if err := db.Model(&widget{}).Where("id = ?", id).First(&got); err != nil {
		t.Fatalf("first: %v", err)
	}
	if got.Name != "cog" {
		t.Fatalf("expected name=cog, got %q", got.Name)
	}

	if _, err := db.Model(&widget{}).Where("id = ?", id).Update(map[string]any{"name": "sprocket"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var list []widget
	if err := db.Model(&widget{}).Where("id = ?", id).Find(&list); err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(list) != 1 || list[0].Name != "sprocket" {
		t.Fatalf("expected one row named sprocket, got %+v", list)
	}

	if _, err := db.Model(&widget{}).Where("id = ?", id).Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}

	count, err := db.Model(&widget{}).Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows after delete, got %d", count)
	}
}

// Transaction must route every statement through the same leased
// connection and return that lease exactly once, on Commit.
func TestDBTransactionCommit(t *testing.T) {
	db := openTestDB(t)
	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	err := db.Transaction(func(tx *Tx) error {
		w := &widget{Name: "bolt"}
		_, err := tx.Model(w).Insert(w)
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	count, err := db.Model(&widget{}).Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row committed, got %d", count)
	}
	if db.Stats().Active != 0 {
		t.Fatalf("expected the transaction's lease to be returned, got active=%d", db.Stats().Active)
	}
}

// A function returning an error must roll back; the lease is still
// returned exactly once.
func TestDBTransactionRollback(t *testing.T) {
	db := openTestDB(t)
	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	wantErr := ErrRecordNotFound
	err := db.Transaction(func(tx *Tx) error {
		w := &widget{Name: "nut"}
		if _, err := tx.Model(w).Insert(w); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}

	count, err := db.Model(&widget{}).Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard the insert, got %d rows", count)
	}
	if db.Stats().Active != 0 {
		t.Fatalf("expected the rolled-back transaction's lease to be returned, got active=%d", db.Stats().Active)
	}
}

// DB.Exec and DB.AutoMigrate both flow through the bounded pool's
// Executor-level implicit checkout; Stats should reflect each call.
func TestDBStatsReflectPoolActivity(t *testing.T) {
	db := openTestDB(t)
	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	if _, err := db.Exec("INSERT INTO widget (name) VALUES (?)", "washer"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	stats := db.Stats()
	if stats.RequestCount == 0 {
		t.Fatalf("expected RequestCount > 0 after AutoMigrate+Exec")
	}
	if stats.Active != 0 {
		t.Fatalf("expected no outstanding leases between calls, got active=%d", stats.Active)
	}
}

func TestDBOpenRejectsUnknownDialect(t *testing.T) {
	if _, err := Open("nonexistent", "whatever", nil); err == nil {
		t.Fatalf("expected an error opening an unregistered dialect")
	}
}
