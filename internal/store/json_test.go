package store

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// renamedDialector reports another dialect name on top of sqlite.
type renamedDialector struct {
	gorm.Dialector
	name string
}

func (d renamedDialector) Name() string { return d.name }

func TestKeyColumn_DataTypePerDialect(t *testing.T) {
	field := &schema.Field{Size: 255}
	for name, want := range map[string]string{
		"mysql":     "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
		"sqlite":    "",
		"postgres":  "",
		"sqlserver": "",
	} {
		db := &gorm.DB{Config: &gorm.Config{Dialector: renamedDialector{Dialector: sqlite.Open(""), name: name}}}
		assert.Equal(t, want, keyColumn("").GormDBDataType(db, field), name)
	}
}

func TestKeyColumn_MigratedTypes(t *testing.T) {
	db := &gorm.DB{Config: &gorm.Config{Dialector: renamedDialector{Dialector: sqlite.Open(""), name: "mysql"}}}
	s, err := schema.Parse(&indexRow{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	assert.Equal(t, "VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
		keyColumn("").GormDBDataType(db, s.LookUpField("index_name")))
	assert.Equal(t, "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
		keyColumn("").GormDBDataType(db, s.LookUpField("index_value")))
}
