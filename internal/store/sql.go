// sql.go
//
// Plant Tracer object and record store
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of odb.
// odb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// odb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with odb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"

	"github.com/planttracer/odb/internal/types"
)

// DefaultScanPageSize is the number of rows SQLBackend.Scan reads per query.
const DefaultScanPageSize = 100

// recordRow is the physical row of every logical table.
type recordRow struct {
	ItemKey   keyColumn  `gorm:"column:item_key;primaryKey;size:255"`
	Version   int64      `gorm:"column:version;not null;default:0"`
	Body      bodyColumn `gorm:"column:body"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

// indexRow maps one secondary index value to an item key. Each logical
// table gets a companion "<table>_index" table of these.
type indexRow struct {
	IndexName  keyColumn `gorm:"column:index_name;primaryKey;size:64"`
	IndexValue keyColumn `gorm:"column:index_value;primaryKey;size:255"`
	ItemKey    keyColumn `gorm:"column:item_key;primaryKey;size:255"`
}

func (r recordRow) item(indexes map[string]string) Item {
	return Item{Key: string(r.ItemKey), Version: r.Version, Indexes: indexes, Body: []byte(r.Body.JSON)}
}

func indexTable(table string) string {
	return table + "_index"
}

// SQLBackend stores tables in a relational database through gorm.
type SQLBackend struct {
	db       *gorm.DB
	pageSize int
}

// NewSQLBackend wraps an open gorm connection.
func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db, pageSize: DefaultScanPageSize}
}

// WithScanPageSize overrides the rows read per Scan query.
func (b *SQLBackend) WithScanPageSize(n int) *SQLBackend {
	if n > 0 {
		b.pageSize = n
	}
	return b
}

// DB exposes the underlying connection.
func (b *SQLBackend) DB() *gorm.DB {
	return b.db
}

func (b *SQLBackend) Name() string {
	return "sql/" + b.db.Dialector.Name()
}

// quiet returns a session that does not log record-not-found lookups.
func (b *SQLBackend) quiet(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx).Session(&gorm.Session{Logger: b.db.Logger.LogMode(logger.Silent)})
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (b *SQLBackend) EnsureTables(ctx context.Context, specs []TableSpec) error {
	db := b.db.WithContext(ctx)
	for _, spec := range specs {
		if err := db.Table(spec.Name).AutoMigrate(&recordRow{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", spec.Name, err)
		}
		if err := db.Table(indexTable(spec.Name)).AutoMigrate(&indexRow{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", indexTable(spec.Name), err)
		}
	}
	return nil
}

func (b *SQLBackend) Put(ctx context.Context, table string, item Item, requireAbsent bool) error {
	row := recordRow{
		ItemKey:   keyColumn(item.Key),
		Version:   item.Version,
		Body:      bodyColumn{JSON: datatypes.JSON(item.Body)},
		UpdatedAt: time.Now().UTC(),
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if requireAbsent {
			result := tx.Table(table).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if result.Error != nil {
				if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
					return types.ErrAlreadyExists
				}
				return result.Error
			}
			if result.RowsAffected == 0 {
				return types.ErrAlreadyExists
			}
		} else {
			result := tx.Table(table).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "item_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"version", "body", "updated_at"}),
			}).Create(&row)
			if result.Error != nil {
				return result.Error
			}
		}
		return writeIndexes(tx, table, item)
	})
}

func (b *SQLBackend) Swap(ctx context.Context, table string, item Item, expected int64) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Table(table).
			Where("item_key = ? AND version = ?", item.Key, expected).
			Updates(map[string]interface{}{
				"version":    item.Version,
				"body":       bodyColumn{JSON: datatypes.JSON(item.Body)},
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrVersionConflict
		}
		return writeIndexes(tx, table, item)
	})
}

// writeIndexes replaces the index rows of item inside tx.
func writeIndexes(tx *gorm.DB, table string, item Item) error {
	if err := tx.Table(indexTable(table)).Where("item_key = ?", item.Key).Delete(&indexRow{}).Error; err != nil {
		return err
	}
	if len(item.Indexes) == 0 {
		return nil
	}
	rows := make([]indexRow, 0, len(item.Indexes))
	for name, value := range item.Indexes {
		rows = append(rows, indexRow{IndexName: keyColumn(name), IndexValue: keyColumn(value), ItemKey: keyColumn(item.Key)})
	}
	return tx.Table(indexTable(table)).Create(&rows).Error
}

func (b *SQLBackend) Get(ctx context.Context, table, key string) (*Item, error) {
	var row recordRow
	err := b.quiet(ctx).Table(table).Where("item_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []indexRow
	if err := b.quiet(ctx).Table(indexTable(table)).Where("item_key = ?", key).Find(&rows).Error; err != nil {
		return nil, err
	}
	indexes := make(map[string]string, len(rows))
	for _, r := range rows {
		indexes[string(r.IndexName)] = string(r.IndexValue)
	}

	item := row.item(indexes)
	return &item, nil
}

func (b *SQLBackend) Query(ctx context.Context, table, index, value string) ([]Item, error) {
	var rows []recordRow
	err := b.quiet(ctx).
		Clauses(hints.CommentBefore("select", "odb:query")).
		Table(table+" AS r").
		Select("r.item_key, r.version, r.body").
		Joins("JOIN "+indexTable(table)+" AS i ON i.item_key = r.item_key").
		Where("i.index_name = ? AND i.index_value = ?", index, value).
		Order("r.item_key").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = r.item(map[string]string{index: value})
	}
	return items, nil
}

func (b *SQLBackend) Delete(ctx context.Context, table, key string) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(indexTable(table)).Where("item_key = ?", key).Delete(&indexRow{}).Error; err != nil {
			return err
		}
		return tx.Table(table).Where("item_key = ?", key).Delete(&recordRow{}).Error
	})
}

// Scan pages through the table in key order. No connection is held between
// pages, so the caller may issue other queries while iterating.
func (b *SQLBackend) Scan(ctx context.Context, table string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		after := ""
		for {
			var rows []recordRow
			err := b.quiet(ctx).
				Clauses(hints.CommentBefore("select", "odb:scan")).
				Table(table).
				Where("item_key > ?", after).
				Order("item_key").
				Limit(b.pageSize).
				Find(&rows).Error
			if err != nil {
				yield(Item{}, err)
				return
			}
			for _, r := range rows {
				if !yield(r.item(nil), nil) {
					return
				}
			}
			if len(rows) < b.pageSize {
				return
			}
			after = string(rows[len(rows)-1].ItemKey)
		}
	}
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
