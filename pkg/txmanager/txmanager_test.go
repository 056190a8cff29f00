package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-QueueService/pkg/dbmetrics"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (t *fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (t *fakeTx) Commit() error {
	t.committed = true
	return t.commitErr
}
func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx      *fakeTx
	begins  int
	lastOpt *sql.TxOptions
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	b.begins++
	b.lastOpt = opts
	return b.tx, nil
}

func TestDoCommitsOnSuccess(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, dbmetrics.IsInTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, beginner.tx.committed)
	assert.False(t, beginner.tx.rolledBack)
	assert.Equal(t, sql.LevelReadCommitted, beginner.lastOpt.Isolation)
}

func TestDoRollsBackOnError(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)
	boom := errors.New("boom")

	err := m.DoSerializable(context.Background(), func(context.Context) error { return boom })

	require.ErrorIs(t, err, boom)
	assert.True(t, beginner.tx.rolledBack)
	assert.False(t, beginner.tx.committed)
	assert.Equal(t, sql.LevelSerializable, beginner.lastOpt.Isolation)
}

func TestNestedCallReusesTransaction(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(beginner)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Equal(t, 1, beginner.begins)
}

func TestCommitErrorIsWrapped(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
	m := NewTransactionManager(beginner)

	err := m.Do(context.Background(), func(context.Context) error { return nil })

	require.ErrorIs(t, err, ErrTransaction)
}
