package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	for range schemaSteps() {
		mock.ExpectExec("CREATE (TABLE|INDEX) IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, EnsureSchema(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_StepFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS component").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS statuses").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = EnsureSchema(context.Background(), db, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create statuses table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaSteps_AreIdempotent(t *testing.T) {
	for _, step := range schemaSteps() {
		assert.Contains(t, step.SQL, "IF NOT EXISTS", step.Description)
	}
}
