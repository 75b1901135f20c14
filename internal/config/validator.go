// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` right after defaults
// are applied.  Any failure aborts startup, so the binary never runs with
// malformed configuration.
//
// One custom rule is registered: `mysql_dsn`, which accepts an empty string
// (fixtures-only mode) or anything the MySQL driver can parse.

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	_ = val.RegisterValidation("mysql_dsn", func(fl validator.FieldLevel) bool {
		dsn := fl.Field().String()
		if dsn == "" {
			return true
		}
		_, err := mysql.ParseDSN(dsn)
		return err == nil
	})
	val.RegisterStructValidation(func(sl validator.StructLevel) {
		db := sl.Current().Interface().(Database)
		if db.MaxIdleConns > db.MaxOpenConns && db.MaxOpenConns > 0 {
			sl.ReportError(db.MaxIdleConns, "MaxIdleConns", "max_idle_conns", "ltefield", "MaxOpenConns")
		}
	}, Database{})
	return val
}

//
// public API
//

// validateStruct returns every validation failure in one error, or nil.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !asValidation(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config invalid: %s", strings.Join(msgs, "; "))
}

func asValidation(err error, out *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*out = ve
	}
	return ok
}
