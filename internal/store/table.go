package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/types"
)

// maxUpdateAttempts bounds the read-modify-swap loop in Table.Update.
const maxUpdateAttempts = 16

// Document is implemented by every type stored through a Table.
type Document interface {
	// PrimaryKey returns the item key. It must not change across updates.
	PrimaryKey() string
	// IndexValues maps secondary index names to values. Names the table does
	// not declare and empty values are ignored.
	IndexValues() map[string]string
}

// Table is a typed view of one logical table.
type Table[T Document] struct {
	store *Store
	spec  TableSpec
	name  string
}

// NewTable binds spec to st.
func NewTable[T Document](st *Store, spec TableSpec) *Table[T] {
	return &Table[T]{store: st, spec: spec, name: st.PhysicalName(spec.Name)}
}

// Spec returns the logical table spec.
func (t *Table[T]) Spec() TableSpec {
	return t.spec
}

// Name returns the physical table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Put writes doc. With requireAbsent it fails with types.ErrAlreadyExists when
// an item with the same primary key exists.
//
// An overwrite starts a fresh version from the clock so an Update that read
// the replaced item cannot swap over it.
func (t *Table[T]) Put(ctx context.Context, doc T, requireAbsent bool) error {
	version := int64(1)
	if !requireAbsent {
		version = time.Now().UnixNano()
	}
	item, err := t.encode(doc, version)
	if err != nil {
		return err
	}
	if err := t.store.backend.Put(ctx, t.name, item, requireAbsent); err != nil {
		if errors.Is(err, types.ErrAlreadyExists) {
			return &types.AlreadyExistsError{Resource: t.spec.Name, Key: item.Key}
		}
		return fmt.Errorf("failed to put %s item: %w", t.spec.Name, err)
	}
	return nil
}

// Get returns nil when the key is absent.
func (t *Table[T]) Get(ctx context.Context, key string) (*T, error) {
	if key == "" {
		return nil, nil
	}
	item, err := t.store.backend.Get(ctx, t.name, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s item: %w", t.spec.Name, err)
	}
	if item == nil {
		return nil, nil
	}
	doc, err := t.decode(*item)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetBySecondary returns every document whose index equals value.
func (t *Table[T]) GetBySecondary(ctx context.Context, index, value string) ([]T, error) {
	if !t.spec.HasIndex(index) {
		return nil, fmt.Errorf("%w: table %s has no index %q", types.ErrInvalidArgument, t.spec.Name, index)
	}
	if value == "" {
		return nil, nil
	}
	items, err := t.store.backend.Query(ctx, t.name, index, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", t.spec.Name, index, err)
	}
	docs := make([]T, 0, len(items))
	for _, item := range items {
		doc, err := t.decode(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (t *Table[T]) Delete(ctx context.Context, key string) error {
	if err := t.store.backend.Delete(ctx, t.name, key); err != nil {
		return fmt.Errorf("failed to delete %s item: %w", t.spec.Name, err)
	}
	return nil
}

// ScanFiltered lazily yields the documents for which pred returns true.
// A nil pred matches everything.
func (t *Table[T]) ScanFiltered(ctx context.Context, pred func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for item, err := range t.store.backend.Scan(ctx, t.name) {
			if err != nil {
				yield(zero, fmt.Errorf("failed to scan %s: %w", t.spec.Name, err))
				return
			}
			doc, err := t.decode(item)
			if err != nil {
				yield(zero, err)
				return
			}
			if pred != nil && !pred(doc) {
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// Update applies mutate to the stored document and writes it back with a
// conditional swap, retrying from a fresh read when a concurrent writer wins.
// It returns nil without calling mutate when the key is absent.
func (t *Table[T]) Update(ctx context.Context, key string, mutate func(*T) error) (*T, error) {
	var (
		result *T
		absent = errors.New("absent")
	)

	op := func() error {
		item, err := t.store.backend.Get(ctx, t.name, key)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get %s item: %w", t.spec.Name, err))
		}
		if item == nil {
			return backoff.Permanent(absent)
		}
		doc, err := t.decode(*item)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := mutate(&doc); err != nil {
			return backoff.Permanent(err)
		}
		if doc.PrimaryKey() != key {
			return backoff.Permanent(fmt.Errorf("%w: primary key of %s is immutable", types.ErrInvalidArgument, t.spec.Name))
		}
		next, err := t.encode(doc, item.Version+1)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := t.store.backend.Swap(ctx, t.name, next, item.Version); err != nil {
			if errors.Is(err, types.ErrVersionConflict) {
				t.store.logger.Debug("Update lost a race, retrying",
					zap.String("table", t.spec.Name),
					zap.String("key", key),
				)
				return err
			}
			return backoff.Permanent(fmt.Errorf("failed to update %s item: %w", t.spec.Name, err))
		}
		result = &doc
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, maxUpdateAttempts), ctx))
	if errors.Is(err, absent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Table[T]) encode(doc T, version int64) (Item, error) {
	key := doc.PrimaryKey()
	if key == "" {
		return Item{}, fmt.Errorf("%w: %s item has an empty primary key", types.ErrInvalidArgument, t.spec.Name)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return Item{}, fmt.Errorf("failed to encode %s item: %w", t.spec.Name, err)
	}
	indexes := make(map[string]string)
	for name, value := range doc.IndexValues() {
		if value != "" && t.spec.HasIndex(name) {
			indexes[name] = value
		}
	}
	return Item{Key: key, Version: version, Indexes: indexes, Body: body}, nil
}

func (t *Table[T]) decode(item Item) (T, error) {
	var doc T
	if err := json.Unmarshal(item.Body, &doc); err != nil {
		return doc, fmt.Errorf("failed to decode %s item %q: %w", t.spec.Name, item.Key, err)
	}
	return doc, nil
}
