package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned by create paths when a store-level unique
// constraint rejects the row. Code-generating services retry on it.
var ErrDuplicate = errors.New("duplicate key")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
