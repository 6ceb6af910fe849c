package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
	"github.com/fieldops/workorder-api/internal/mocks"
)

// The group checks on create and transfer run before any transaction opens,
// so these tests need no database.

func TestCreateJobRejectsArchivedGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockGroupDirectory(ctrl)
	dir.EXPECT().
		GetGroup(gomock.Any(), "g-archived").
		Return(&model.Group{ID: "g-archived", Name: "North", Archived: true}, nil)

	s := &RoutingService{groups: dir}
	_, err := s.CreateJob(context.Background(), model.CreateJobRequest{
		JobID:   "J-1001",
		GroupID: "g-archived",
		Address: "12 Elm St",
	}, "u-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "archived")
}

func TestCreateJobPropagatesGroupLookupError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockGroupDirectory(ctrl)
	dir.EXPECT().
		GetGroup(gomock.Any(), "g-missing").
		Return(nil, apperrors.NotFoundf("group g-missing not found"))

	s := &RoutingService{groups: dir}
	_, err := s.CreateJob(context.Background(), model.CreateJobRequest{
		JobID:   "J-1001",
		GroupID: "g-missing",
		Address: "12 Elm St",
	}, "u-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransferRejectsArchivedTargetGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockGroupDirectory(ctrl)
	dir.EXPECT().
		GetGroup(gomock.Any(), "g-archived").
		Return(&model.Group{ID: "g-archived", Name: "South", Archived: true}, nil)

	s := &RoutingService{groups: dir}
	_, err := s.Transfer(context.Background(), model.TransferRequest{
		AssignmentID:  "a-1",
		TargetGroupID: "g-archived",
	}, "u-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransferValidatesBeforeGroupLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// GetGroup must not be called for a request that fails field validation.
	dir := mocks.NewMockGroupDirectory(ctrl)

	s := &RoutingService{groups: dir}
	_, err := s.Transfer(context.Background(), model.TransferRequest{
		AssignmentID: "a-1",
	}, "u-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "target_group_id", apperrors.GetField(err))
}
