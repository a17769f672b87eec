package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// ScopeKey is the context key for the request-scoped database connection.
const ScopeKey contextKey = "dbScope"

// ErrNoScope is returned by repositories when the context carries no connection.
var ErrNoScope = errors.New("no database scope in context")

// Querier is the subset of pgx shared by connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Scope wraps a pooled connection, and an open transaction when inside InTx.
type Scope struct {
	Conn *pgxpool.Conn
	tx   pgx.Tx
}

// Querier returns the open transaction if there is one, otherwise the connection.
func (s *Scope) Querier() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.Conn
}

// InTransaction reports whether the scope is bound to an open transaction.
func (s *Scope) InTransaction() bool {
	return s.tx != nil
}

// Close releases the connection back to the pool.
// This MUST be called on scopes returned by DB.Acquire.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
}

// GetScope retrieves the database scope from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok && scope != nil
}

// SetScope stores the database scope in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// QuerierFromContext returns the Querier of the scope in ctx.
func QuerierFromContext(ctx context.Context) (Querier, error) {
	scope, ok := GetScope(ctx)
	if !ok {
		return nil, ErrNoScope
	}
	return scope.Querier(), nil
}

// Transactor runs a function inside a single atomic unit of work.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type scopeTransactor struct{}

// NewTransactor returns a Transactor that begins transactions on the scope in ctx.
// Nested calls join the outer transaction.
func NewTransactor() Transactor {
	return scopeTransactor{}
}

// InTx begins a transaction on the scope's connection, runs fn with a context
// bound to it, and commits if fn returns nil. Any error rolls back.
func (scopeTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	scope, ok := GetScope(ctx)
	if !ok {
		return ErrNoScope
	}
	if scope.InTransaction() {
		return fn(ctx)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(SetScope(ctx, &Scope{Conn: scope.Conn, tx: tx})); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Ensure scopeTransactor implements Transactor at compile time.
var _ Transactor = scopeTransactor{}
