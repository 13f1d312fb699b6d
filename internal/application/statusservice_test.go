package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cookierelay/internal/application"
	"github.com/ericfisherdev/cookierelay/internal/domain/model"
)

func TestSummary_ReportsOutcomeAndCookieHealth(t *testing.T) {
	store := newMockStore()
	updated := time.Now().UTC().Add(-30 * time.Minute)
	store.records["default"] = &model.CredentialRecord{
		PrimarySessionID: "S1",
		RotationToken:    "R1",
		UpdatedAt:        updated,
	}
	store.outcomes["default"] = &model.TriggerOutcome{
		TriggeredAt: time.Now().UTC().Add(-time.Hour),
		Kind:        model.TriggerScheduled,
		Succeeded:   true,
	}

	summary := application.NewStatusService(store, "default").Summary(context.Background())

	require.NotNil(t, summary.LastRefresh)
	assert.True(t, summary.LastRefresh.Succeeded)
	assert.Equal(t, model.TriggerScheduled, summary.LastRefresh.Kind)

	require.NotNil(t, summary.Cookies)
	assert.True(t, summary.Cookies.HasPrimary)
	assert.True(t, summary.Cookies.HasRotation)
	assert.Equal(t, updated, summary.Cookies.UpdatedAt)
}

func TestSummary_FlagsMissingFieldsWithoutValues(t *testing.T) {
	store := newMockStore()
	store.records["default"] = &model.CredentialRecord{
		PrimarySessionID: "S1",
		UpdatedAt:        time.Now().UTC(),
	}

	summary := application.NewStatusService(store, "default").Summary(context.Background())

	require.NotNil(t, summary.Cookies)
	assert.True(t, summary.Cookies.HasPrimary)
	assert.False(t, summary.Cookies.HasRotation)
}

func TestSummary_EmptyStore(t *testing.T) {
	summary := application.NewStatusService(newMockStore(), "default").Summary(context.Background())

	assert.Nil(t, summary.LastRefresh)
	assert.Nil(t, summary.Cookies)
}

func TestSummary_DegradesWhenStoreFlakes(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection refused")
	store.outErr = errors.New("connection refused")

	summary := application.NewStatusService(store, "default").Summary(context.Background())

	assert.Nil(t, summary.LastRefresh)
	assert.Nil(t, summary.Cookies)
}
