// internal/database/errors.go
//
// Error taxonomy shared by the repositories.
//
// Context
// -------
// Four kinds of failure reach callers of the content layer:
//
//   - connectivity – the store is unreachable or not configured.  Errors
//     wrap ErrUnavailable or come straight from the driver/network stack.
//   - not found    – never an error; lookups return nil, nil.
//   - input        – ErrNothingToUpdate for an empty patch, ErrInvalid for
//     a record that breaks an entity invariant.
//   - query        – everything else, including duplicate-key violations,
//     which are passed through uninterpreted.
//
// LogError is the single place these are logged and counted.
package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/metrics"
)

var (
	// ErrUnavailable marks a store that is not configured or not reachable.
	ErrUnavailable = errors.New("database unavailable")

	// ErrNothingToUpdate is returned by partial updates with no fields set.
	ErrNothingToUpdate = errors.New("nothing to update")

	// ErrInvalid marks input that violates an entity invariant.
	ErrInvalid = errors.New("invalid input")
)

// Kind classifies an error for logging and for HTTP status mapping.
type Kind string

const (
	KindConnectivity Kind = "connectivity"
	KindInput        Kind = "input"
	KindQuery        Kind = "query"
)

// Classify reports the Kind of err.  nil classifies as KindQuery; callers
// are expected to check for nil first.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn):
		return KindConnectivity
	case errors.Is(err, ErrNothingToUpdate), errors.Is(err, ErrInvalid):
		return KindInput
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnectivity
	}
	return KindQuery
}

// IsConnectivity reports whether err means the store could not be reached.
func IsConnectivity(err error) bool {
	return err != nil && Classify(err) == KindConnectivity
}

// IsDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062).
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// Invalid builds an ErrInvalid-wrapping error.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// LogError logs err under op and bumps the error counter.  Connectivity
// failures are logged at a distinct message so operators can alert on
// them; input errors are logged at debug.  It never retries.
func (p *Provider) LogError(err error, op string) {
	if err == nil {
		return
	}
	kind := Classify(err)
	metrics.RepositoryErrorsTotal.WithLabelValues(op, string(kind)).Inc()

	switch kind {
	case KindConnectivity:
		zap.L().Error("database connection failed",
			zap.String("op", op), zap.Error(err))
	case KindInput:
		zap.L().Debug("rejected input",
			zap.String("op", op), zap.Error(err))
	default:
		zap.L().Error("database query failed",
			zap.String("op", op), zap.Error(err))
	}
}

// Fail logs err under op and returns it wrapped with op.
func (p *Provider) Fail(op string, err error) error {
	p.LogError(err, op)
	return fmt.Errorf("%s: %w", op, err)
}
