package database

import (
	"context"
	"fmt"

	"inkwell/internal/config"

	"gorm.io/gorm"
)

const gooseVersionTable = "goose_db_version"

// Column describes one column of a managed table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Primary  bool
}

// TableInfo is a snapshot of a managed table.
type TableInfo struct {
	Name    string
	Exists  bool
	Rows    int64
	Columns []Column
	Indexes []string
}

// InspectSchema reports the columns, indexes and row counts of every
// persistent model's table. Missing tables are reported with Exists false.
func InspectSchema(ctx context.Context, db *gorm.DB) ([]TableInfo, error) {
	db = db.WithContext(ctx)
	m := db.Migrator()

	var out []TableInfo
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		info := TableInfo{Name: stmt.Schema.Table, Exists: m.HasTable(model)}
		if !info.Exists {
			out = append(out, info)
			continue
		}

		cols, err := m.ColumnTypes(model)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", info.Name, err)
		}
		for _, c := range cols {
			col := Column{Name: c.Name(), Type: c.DatabaseTypeName()}
			col.Nullable, _ = c.Nullable()
			col.Primary, _ = c.PrimaryKey()
			info.Columns = append(info.Columns, col)
		}

		indexes, err := m.GetIndexes(model)
		if err != nil {
			return nil, fmt.Errorf("indexes of %s: %w", info.Name, err)
		}
		for _, idx := range indexes {
			info.Indexes = append(info.Indexes, idx.Name())
		}

		if err := db.Model(model).Count(&info.Rows).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", info.Name, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Constraint is a Postgres table constraint.
type Constraint struct {
	Table      string `gorm:"column:relname"`
	Name       string `gorm:"column:conname"`
	Definition string `gorm:"column:def"`
}

// ListConstraints returns the constraints defined in the public schema.
// Only Postgres keeps a catalog for this.
func ListConstraints(ctx context.Context, db *gorm.DB) ([]Constraint, error) {
	if db.Dialector.Name() != DriverPostgres {
		return nil, fmt.Errorf("constraints are only listed for postgres, got %s", db.Dialector.Name())
	}
	var out []Constraint
	err := db.WithContext(ctx).Raw(`SELECT r.relname, c.conname, pg_get_constraintdef(c.oid) AS def
FROM pg_constraint c
JOIN pg_class r ON c.conrelid = r.oid
JOIN pg_namespace n ON n.oid = r.relnamespace
WHERE n.nspname = 'public'
ORDER BY r.relname, c.conname`).Scan(&out).Error
	return out, err
}

// ResetSchema drops every managed table and the migration history. It
// refuses to run in production-like environments.
func ResetSchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if isProdLikeEnv(cfg.Env) {
		return fmt.Errorf("refusing to reset schema in %q", cfg.Env)
	}
	m := db.WithContext(ctx).Migrator()
	models := PersistentModels()
	// blogs reference users, so drop in reverse order
	for i := len(models) - 1; i >= 0; i-- {
		if err := m.DropTable(models[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	if m.HasTable(gooseVersionTable) {
		if err := m.DropTable(gooseVersionTable); err != nil {
			return fmt.Errorf("drop %s: %w", gooseVersionTable, err)
		}
	}
	return nil
}
