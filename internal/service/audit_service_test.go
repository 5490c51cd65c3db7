package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/donor-auth/internal/events"
	"github.com/spec-kit/donor-auth/internal/observability"
)

func accountEventCount(t *testing.T, m *observability.Metrics, event string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "donor_auth_account_events_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "event" && label.GetValue() == event {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestAuditServiceRecordsAccountEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := observability.NewMetrics()
	dispatcher := events.NewAccountEventBus()
	NewAuditService(dispatcher, zap.New(core), metrics).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventPrincipalSignedUp, "p-1",
		events.SignedUpPayload{AccountType: "donor"})))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventLoginRejected, "p-1",
		events.LoginRejectedPayload{Reason: "bad_password"})))

	entries := logs.FilterMessage("account event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "principal_signed_up", entries[0].ContextMap()["event_type"])
	assert.Equal(t, "p-1", entries[0].ContextMap()["principal_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	assert.Equal(t, 1.0, accountEventCount(t, metrics, "principal_signed_up"))
	assert.Equal(t, 1.0, accountEventCount(t, metrics, "login_rejected"))
}

func TestAuditServiceWithoutDispatcher(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAuditService(nil, zap.NewNop(), nil).RegisterHandlers()
	})
}
