package types

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The service tests run against in-memory sqlite, so every column default in
// the model tags has to be valid there as well as in postgres.
func TestModelsMigrateOnSQLite(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:typesmigrate?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&KeywordPool{}, &KeywordGroup{}, &GroupingOverride{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	for _, model := range []interface{}{&KeywordPool{}, &KeywordGroup{}, &GroupingOverride{}} {
		if !gdb.Migrator().HasTable(model) {
			t.Fatalf("table missing for %T", model)
		}
	}
}
