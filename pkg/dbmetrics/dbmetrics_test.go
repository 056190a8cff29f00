package dbmetrics

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTx struct{}

func (fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (fakeTx) Commit() error                                                    { return nil }
func (fakeTx) Rollback() error                                                  { return nil }

func TestGetExecutorPrefersTransaction(t *testing.T) {
	db := Wrap(nil, nil)
	ctx := context.Background()

	assert.False(t, IsInTransaction(ctx))
	assert.Same(t, db, GetExecutor(ctx, db))

	tx := &fakeTx{}
	txCtx := WithTx(ctx, tx)
	assert.True(t, IsInTransaction(txCtx))
	assert.Equal(t, tx, GetExecutor(txCtx, db))
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "select", operation("SELECT id FROM staff"))
	assert.Equal(t, "insert", operation("  INSERT INTO x VALUES ($1)"))
	assert.Equal(t, "update", operation("UPDATE departure_alerts SET a = $1"))
	assert.Equal(t, "delete", operation("DELETE FROM x"))
	assert.Equal(t, "with", operation("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.Equal(t, "other", operation("VACUUM"))
}
