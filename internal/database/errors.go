package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lib/pq"
	"github.com/npezzotti/go-roomboard/internal/types"
)

const (
	pqInsufficientPrivilege pq.ErrorCode  = "42501"
	pqUniqueViolation       pq.ErrorCode  = "23505"
	pqConnectionException   pq.ErrorClass = "08"
	pqOperatorIntervention  pq.ErrorClass = "57"
)

// classify wraps store errors with the matching sentinel from the types
// package so callers can use errors.Is without knowing about the driver.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", types.ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqInsufficientPrivilege:
			return fmt.Errorf("%w: %w", types.ErrPermissionDenied, err)
		case pqErr.Code == pqUniqueViolation:
			return fmt.Errorf("%w: %w", types.ErrAlreadyExists, err)
		case pqErr.Code.Class() == pqConnectionException,
			pqErr.Code.Class() == pqOperatorIntervention:
			return fmt.Errorf("%w: %w", types.ErrNetworkUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", types.ErrNetworkUnavailable, err)
	}

	return err
}
