package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

func TestNewRoutingServiceValidation(t *testing.T) {
	_, err := NewRoutingService(RoutingServiceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is required")
}

func TestNewLogActorColumn(t *testing.T) {
	tests := []struct {
		action model.LogAction
		check  func(t *testing.T, l *model.JobLog)
	}{
		{model.LogActionCreate, func(t *testing.T, l *model.JobLog) { require.NotNil(t, l.CreatedBy) }},
		{model.LogActionUpdate, func(t *testing.T, l *model.JobLog) { require.NotNil(t, l.UpdatedBy) }},
		{model.LogActionTransfer, func(t *testing.T, l *model.JobLog) { require.NotNil(t, l.TransferredBy) }},
		{model.LogActionReturn, func(t *testing.T, l *model.JobLog) { require.NotNil(t, l.ReturnedBy) }},
		{model.LogActionClose, func(t *testing.T, l *model.JobLog) { require.NotNil(t, l.ClosedBy) }},
		{model.LogActionPartial, func(t *testing.T, l *model.JobLog) { require.NotNil(t, l.PartiallyClosedBy) }},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			l := newLog("job-1", tt.action, "user-1")
			tt.check(t, l)
			assert.Equal(t, "user-1", l.Actor())
			assert.Equal(t, tt.action, l.Action)
		})
	}
}

func TestHomeOf(t *testing.T) {
	home, err := homeOf([]model.Assignment{
		{ID: "a1", IsHome: false},
		{ID: "a2", IsHome: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "a2", home.ID)

	_, err = homeOf([]model.Assignment{{ID: "a1"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}
