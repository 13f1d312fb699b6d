package redisstore_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cookierelay/internal/adapter/driven/redisstore"
	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

func setupStore(t *testing.T, opts ...redisstore.Option) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisstore.Open(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.New(client, "cookierelay:", opts...), mr
}

func sampleRecord() model.CredentialRecord {
	return model.CredentialRecord{
		PrimarySessionID: "S1",
		RotationToken:    "R1",
		UpdatedAt:        time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
}

func TestStore_CredentialRoundtrip(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutCredential(ctx, "default", sampleRecord()))

	got, err := store.GetCredential(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "S1", got.PrimarySessionID)
	assert.Equal(t, "R1", got.RotationToken)
	assert.Equal(t, sampleRecord().UpdatedAt, got.UpdatedAt)
}

func TestStore_AbsentCredentialIsNilNil(t *testing.T) {
	store, _ := setupStore(t)

	got, err := store.GetCredential(context.Background(), "default")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PutReplacesWholeRecord(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutCredential(ctx, "default", sampleRecord()))

	next := sampleRecord()
	next.RotationToken = "R2"
	next.UpdatedAt = next.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.PutCredential(ctx, "default", next))

	got, err := store.GetCredential(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "R2", got.RotationToken)
	assert.Equal(t, next.UpdatedAt, got.UpdatedAt)
}

func TestStore_NamesAreIsolated(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutCredential(ctx, "default", sampleRecord()))

	got, err := store.GetCredential(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_OutcomeRoundtrip(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	out := model.TriggerOutcome{
		TriggeredAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Kind:        model.TriggerManual,
		Succeeded:   false,
		ErrorDetail: "refresh failed: rate_limited",
	}
	require.NoError(t, store.PutLastOutcome(ctx, "default", out))

	got, err := store.GetLastOutcome(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, out, *got)
}

func TestStore_AbsentOutcomeIsNilNil(t *testing.T) {
	store, _ := setupStore(t)

	got, err := store.GetLastOutcome(context.Background(), "default")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_EncryptionRoundtrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	store, mr := setupStore(t, redisstore.WithEncryptionKey(key))
	ctx := context.Background()

	require.NoError(t, store.PutCredential(ctx, "default", sampleRecord()))

	// The stored value must not contain the plaintext secrets.
	raw, err := mr.Get("cookierelay:credential:default")
	require.NoError(t, err)
	assert.NotContains(t, raw, "S1")
	assert.NotContains(t, raw, "R1")

	got, err := store.GetCredential(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "S1", got.PrimarySessionID)
	assert.Equal(t, "R1", got.RotationToken)
}

func TestStore_WrongKeyFailsToDecrypt(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisstore.Open(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	writer := redisstore.New(client, "cookierelay:", redisstore.WithEncryptionKey(bytes.Repeat([]byte{0x01}, 32)))
	require.NoError(t, writer.PutCredential(context.Background(), "default", sampleRecord()))

	reader := redisstore.New(client, "cookierelay:", redisstore.WithEncryptionKey(bytes.Repeat([]byte{0x02}, 32)))
	_, err := reader.GetCredential(context.Background(), "default")
	assert.Error(t, err)
}

func TestStore_RecordTTL(t *testing.T) {
	store, mr := setupStore(t, redisstore.WithRecordTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.PutCredential(ctx, "default", sampleRecord()))
	assert.Equal(t, time.Hour, mr.TTL("cookierelay:credential:default"))

	// Outcomes never expire: the status surface must outlive the credential.
	require.NoError(t, store.PutLastOutcome(ctx, "default", model.TriggerOutcome{Succeeded: true}))
	assert.Equal(t, time.Duration(0), mr.TTL("cookierelay:last_refresh:default"))
}
