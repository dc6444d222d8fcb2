package keystore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMasterKey = bytes.Repeat([]byte{0x42}, 32)

func TestNewStoreRejectsBadKeyLength(t *testing.T) {
	_, err := NewStore(nil, []byte("short"))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	store, err := NewStore(nil, testMasterKey)
	require.NoError(t, err)

	sealed, err := store.encrypt("sk-test-12345")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "sk-test", "ciphertext must not contain the plaintext")

	plain, err := store.decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-12345", plain)
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	store, err := NewStore(nil, testMasterKey)
	require.NoError(t, err)

	a, err := store.encrypt("sk-test")
	require.NoError(t, err)
	b, err := store.encrypt("sk-test")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "same plaintext must seal differently each time")
}

func TestDecryptRejectsTampering(t *testing.T) {
	store, err := NewStore(nil, testMasterKey)
	require.NoError(t, err)

	_, err = store.decrypt("bm90IHJlYWwgY2lwaGVydGV4dA==")
	assert.Error(t, err)

	_, err = store.decrypt("!!!")
	assert.Error(t, err)
}

func TestGetKey(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(db, testMasterKey)
	require.NoError(t, err)

	sealed, err := store.encrypt("sk-live-abc")
	require.NoError(t, err)

	tenantID := uuid.New()
	mock.ExpectQuery("SELECT encrypted_key FROM tenant_api_keys").
		WithArgs(tenantID, "openai").
		WillReturnRows(sqlmock.NewRows([]string{"encrypted_key"}).AddRow(sealed))

	key, err := store.GetKey(context.Background(), tenantID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-abc", key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetKeyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(db, testMasterKey)
	require.NoError(t, err)

	tenantID := uuid.New()
	mock.ExpectQuery("SELECT encrypted_key FROM tenant_api_keys").
		WithArgs(tenantID, "openai").
		WillReturnRows(sqlmock.NewRows([]string{"encrypted_key"}))

	_, err = store.GetKey(context.Background(), tenantID, "openai")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestSetKey(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(db, testMasterKey)
	require.NoError(t, err)

	tenantID := uuid.New()
	mock.ExpectExec("INSERT INTO tenant_api_keys").
		WithArgs(tenantID, "openai", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.SetKey(context.Background(), tenantID, "openai", "sk-live-abc")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
