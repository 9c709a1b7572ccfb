package ledger

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresGet(t *testing.T) {
	kv, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT value FROM ledger_kv WHERE key = \\$1").
		WithArgs([]byte("k")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("v")))

	value, err := kv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetAbsentKey(t *testing.T) {
	kv, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT value FROM ledger_kv WHERE key = \\$1").
		WithArgs([]byte("missing")).
		WillReturnError(sql.ErrNoRows)

	value, err := kv.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestPostgresPutUpsert(t *testing.T) {
	kv, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO ledger_kv").
		WithArgs([]byte("k"), []byte("v")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.Put("k", []byte("v")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresScanPrefixRangeQuery(t *testing.T) {
	kv, mock := newMockPostgres(t)

	prefix := CompositeKey("patient", "P1")
	mock.ExpectQuery("SELECT key, value FROM ledger_kv WHERE key >= \\$1 AND key < \\$2 ORDER BY key").
		WithArgs([]byte(prefix), keyUpperBound(prefix)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow([]byte(prefix+"a\x00"), []byte("1")).
			AddRow([]byte(prefix+"b\x00"), []byte("2")))

	it := kv.ScanPrefix(prefix)
	defer it.Close()

	var values []string
	for it.Next() {
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1", "2"}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresScanPrefixQueryError(t *testing.T) {
	kv, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT key, value FROM ledger_kv").
		WillReturnError(fmt.Errorf("connection reset"))

	it := kv.ScanPrefix("patient")
	defer it.Close()

	assert.False(t, it.Next())
	assert.Error(t, it.Err())
}
