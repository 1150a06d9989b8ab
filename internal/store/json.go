package store

import (
	"database/sql/driver"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// bodyColumn stores a document body. It wraps datatypes.JSON so the column
// type can be chosen per dialect.
type bodyColumn struct {
	datatypes.JSON
}

func (b bodyColumn) Value() (driver.Value, error) {
	if len(b.JSON) == 0 {
		return "null", nil
	}
	return b.JSON.Value()
}

func (b *bodyColumn) Scan(value interface{}) error {
	return b.JSON.Scan(value)
}

// GormDBDataType maps the body column per dialect. MSSQL has no json type.
func (bodyColumn) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "mysql", "sqlite":
		return "JSON"
	case "sqlserver":
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

// keyColumn stores item keys and index values. Keys compare byte for byte on
// every dialect.
type keyColumn string

// GormDBDataType overrides the case-insensitive, pad-space default collation
// of mysql and mariadb. Other dialects keep the size-derived type.
func (keyColumn) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return fmt.Sprintf("VARCHAR(%d) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin", field.Size)
	}
	return ""
}
