// internal/database/patch.go
//
// Partial-update support.
//
// Context
// -------
// Admin edits send only the fields that changed.  A patch struct declares
// one Field[T] per editable column; JSON decoding marks a field Set when the
// key is present, including an explicit null for pointer-typed (nullable)
// columns.  Update collects the Set fields as (column, value) pairs and
// renders one parameterised statement:
//
//	u := database.NewUpdate("events")
//	database.Set(u, "title", p.Title)
//	u.Touch("updated_at", now)
//	q, args, err := u.SQL("id", id)
//
// Values never reach the SQL text.  Column names come from code, not
// input.  A patch with no Set fields yields ErrNothingToUpdate before any
// statement is built.
package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Field is one optional value in a patch.  The zero Field is absent.
type Field[T any] struct {
	Value T
	Set   bool
}

// Value returns a present Field holding v.
func Value[T any](v T) Field[T] { return Field[T]{Value: v, Set: true} }

// UnmarshalJSON marks the field present.  A JSON null is accepted only for
// nullable element types (pointer, slice, map).
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		switch reflect.TypeOf((*T)(nil)).Elem().Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			var zero T
			f.Value, f.Set = zero, true
			return nil
		}
		return fmt.Errorf("%w: field cannot be null", ErrInvalid)
	}
	if err := json.Unmarshal(b, &f.Value); err != nil {
		return err
	}
	f.Set = true
	return nil
}

// Update accumulates column assignments for one row.
type Update struct {
	table     string
	cols      []string
	args      []any
	touchCol  string
	touchTime time.Time
}

// NewUpdate starts an UPDATE against table.
func NewUpdate(table string) *Update { return &Update{table: table} }

// Set adds column = f.Value when f is present.
func Set[T any](u *Update, column string, f Field[T]) {
	if f.Set {
		u.Add(column, f.Value)
	}
}

// Add assigns column unconditionally.  Used for derived columns such as a
// latitude/longitude pair written together.
func (u *Update) Add(column string, value any) {
	u.cols = append(u.cols, column)
	u.args = append(u.args, value)
}

// Touch stamps column with t, but only when something else changes.
func (u *Update) Touch(column string, t time.Time) {
	u.touchCol, u.touchTime = column, t
}

// Empty reports whether no assignment has been added.
func (u *Update) Empty() bool { return len(u.cols) == 0 }

// Columns lists assigned columns in insertion order (touch excluded).
func (u *Update) Columns() []string { return append([]string(nil), u.cols...) }

// SQL renders "UPDATE t SET a = ?, ... WHERE keyCol = ?".
func (u *Update) SQL(keyCol string, key any) (string, []any, error) {
	if u.Empty() {
		return "", nil, ErrNothingToUpdate
	}

	sets := make([]string, 0, len(u.cols)+1)
	args := make([]any, 0, len(u.args)+2)
	for i, c := range u.cols {
		sets = append(sets, c+" = ?")
		args = append(args, u.args[i])
	}
	if u.touchCol != "" {
		sets = append(sets, u.touchCol+" = ?")
		args = append(args, u.touchTime)
	}
	args = append(args, key)

	q := "UPDATE " + u.table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + keyCol + " = ?"
	return q, args, nil
}
