package core

import "errors"

// Predefined errors returned by tolcan database operations.
// Callers distinguish error classes with errors.Is.
var (
	// ErrNoRows is returned when a query that expects rows returns no results.
	ErrNoRows = errors.New("no rows in result set")

	// ErrPoolClosed is returned when operating on a pool that has been closed,
	// or when closing a pool twice.
	ErrPoolClosed = errors.New("connection pool is closed")

	// ErrMissingWhere is returned when a DELETE or a mapper-level UPDATE/DELETE
	// is attempted without any WHERE condition. The gate exists to make
	// full-table mutations an explicit decision rather than an accident.
	ErrMissingWhere = errors.New("refusing to run without a WHERE clause")

	// ErrTxDone is returned when committing or rolling back a transaction that
	// has already reached a terminal state.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")

	// ErrNotPersisted is returned when deleting a record whose primary-key
	// field has never been set.
	ErrNotPersisted = errors.New("record has no primary key value")
)

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
