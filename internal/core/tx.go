package core

import (
	"context"
	"database/sql"
)

// txState tracks the transaction lifecycle. The state moves from active to
// exactly one terminal state and never changes again.
type txState int

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

// Tx wraps one pinned connection with begin/commit/rollback state. Every
// statement routed through the transaction's connection runs in the same
// database session, which is what makes multi-statement operations atomic.
// The pinned connection is released back to the pool exactly once, at the
// terminal transition.
type Tx struct {
	pool  *Pool
	conn  *sql.Conn
	state txState
}

// BeginTx acquires a pinned connection and opens a transaction on it.
func (p *Pool) BeginTx(ctx context.Context) (*Tx, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
		_ = p.Release(conn)
		return nil, WrapError(err, "tx: begin")
	}
	return &Tx{pool: p, conn: conn, state: txActive}, nil
}

// Conn exposes the pinned connection so builder and mapper operations can be
// routed through the transaction.
func (tx *Tx) Conn() *sql.Conn {
	return tx.conn
}

// Commit commits the transaction and releases the pinned connection. Fails
// with ErrTxDone if the transaction already reached a terminal state. The
// connection is released even when the COMMIT statement itself fails.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.state != txActive {
		return ErrTxDone
	}
	tx.state = txCommitted
	_, err := tx.conn.ExecContext(ctx, "COMMIT")
	if relErr := tx.pool.Release(tx.conn); err == nil {
		err = relErr
	}
	return WrapError(err, "tx: commit")
}

// Rollback rolls back the transaction and releases the pinned connection.
// Fails with ErrTxDone after a commit; is a silent no-op after a rollback.
func (tx *Tx) Rollback(ctx context.Context) error {
	switch tx.state {
	case txCommitted:
		return ErrTxDone
	case txRolledBack:
		return nil
	}
	tx.state = txRolledBack
	_, err := tx.conn.ExecContext(ctx, "ROLLBACK")
	if relErr := tx.pool.Release(tx.conn); err == nil {
		err = relErr
	}
	return WrapError(err, "tx: rollback")
}

// Transactional runs fn inside a transaction. It commits on normal return and
// rolls back and returns the error on failure. A panic inside fn rolls the
// transaction back and re-panics. The pinned connection is released exactly
// once on every path.
func (p *Pool) Transactional(ctx context.Context, fn func(*Tx) error) error {
	tx, err := p.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
