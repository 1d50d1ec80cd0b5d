package database

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/shopspring/decimal"
)

var errMissingColumn = errors.New("column not present in result")

var (
	decimalType    = reflect.TypeOf(decimal.Decimal{})
	decimalPtrType = reflect.TypeOf((*decimal.Decimal)(nil))
)

// mapper resolves columns against db tags. Untagged fields map by their
// lowercased name and are never required.
var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

// ExtractRow maps the current row of rows onto a new T by column name.
// Every db-tagged field of T must have a matching column and every column
// must have a destination field. Anything else yields a *MappingError.
func ExtractRow[T any](rows *sql.Rows) (T, error) {
	return extract[T](&sqlx.Rows{Rows: rows, Mapper: mapper})
}

// extractAll drains rows into a slice. The result is never nil.
func extractAll[T any](rows *sql.Rows) ([]T, error) {
	rx := &sqlx.Rows{Rows: rows, Mapper: mapper}

	out := make([]T, 0)
	for rx.Next() {
		item, err := extract[T](rx)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rx.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

func extract[T any](rx *sqlx.Rows) (T, error) {
	var out T
	t := reflect.TypeOf(out)
	if t == nil || t.Kind() != reflect.Struct {
		return out, fmt.Errorf("cannot extract into %T: not a struct", out)
	}

	columns, err := rx.Columns()
	if err != nil {
		return out, fmt.Errorf("failed to read result columns: %w", err)
	}
	if err := requireColumns(t, columns); err != nil {
		return out, err
	}

	if err := rx.StructScan(&out); err != nil {
		var zero T
		return zero, &MappingError{Field: t.Name(), Err: err}
	}

	roundDecimals(reflect.ValueOf(&out).Elem(), mapper.TypeMap(t))
	return out, nil
}

// requireColumns checks that every db-tagged top-level field of t has a
// column in the result.
func requireColumns(t reflect.Type, columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}

	for _, fi := range mapper.TypeMap(t).Tree.Children {
		if fi == nil || !tagged(fi.Field) {
			continue
		}
		if _, ok := present[fi.Name]; !ok {
			return &MappingError{
				Column: fi.Name,
				Field:  t.Name() + "." + fi.Field.Name,
				Err:    errMissingColumn,
			}
		}
	}
	return nil
}

func tagged(f reflect.StructField) bool {
	tag, _, _ := strings.Cut(f.Tag.Get("db"), ",")
	return tag != "" && tag != "-"
}

// roundDecimals applies the storage scale to decimal fields after a scan.
func roundDecimals(v reflect.Value, sm *reflectx.StructMap) {
	for _, fi := range sm.Tree.Children {
		if fi == nil || !tagged(fi.Field) {
			continue
		}
		f := v.FieldByIndex(fi.Index)
		switch f.Type() {
		case decimalType:
			f.Set(reflect.ValueOf(f.Interface().(decimal.Decimal).Round(DecimalPlaces)))
		case decimalPtrType:
			if !f.IsNil() {
				d := f.Interface().(*decimal.Decimal).Round(DecimalPlaces)
				f.Set(reflect.ValueOf(&d))
			}
		}
	}
}
