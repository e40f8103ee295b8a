package postgres

import (
	"os"
	"testing"
)

func TestVersionTable(t *testing.T) {
	if got := VersionTable("dev_"); got != "dev_goose_db_version" {
		t.Errorf("VersionTable(dev_) = %q", got)
	}
	if got := VersionTable(""); got != "goose_db_version" {
		t.Errorf("VersionTable(\"\") = %q", got)
	}
}

func TestMigrator_WithPrefixRestoresEnv(t *testing.T) {
	t.Setenv("TABLE_PREFIX", "outer_")

	m := &Migrator{prefix: "test_"}
	var seen string
	if err := m.withPrefix(func() error {
		seen = os.Getenv("TABLE_PREFIX")
		return nil
	}); err != nil {
		t.Fatalf("withPrefix error = %v", err)
	}

	if seen != "test_" {
		t.Errorf("TABLE_PREFIX during run = %q, want test_", seen)
	}
	if got := os.Getenv("TABLE_PREFIX"); got != "outer_" {
		t.Errorf("TABLE_PREFIX after run = %q, want outer_", got)
	}
}

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("prod_")
	if tables.FeatureSpecs != "prod_feature_specs" || tables.FieldChanges != "prod_field_changes" {
		t.Errorf("NewTableNames(prod_) = %+v", tables)
	}
}
