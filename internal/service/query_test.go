package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/workorder-api/internal/data"
	"github.com/fieldops/workorder-api/internal/domain/model"
)

type stubAssignmentReader struct {
	gotOpts model.AssignmentListOptions
}

func (r *stubAssignmentReader) ListAssignments(_ context.Context, opts model.AssignmentListOptions) ([]*model.AssignmentWithJob, error) {
	r.gotOpts = opts
	return []*model.AssignmentWithJob{}, nil
}

func (r *stubAssignmentReader) StatusCounts(_ context.Context, _ model.AssignmentListOptions) (*model.JobStatusCounts, error) {
	return &model.JobStatusCounts{Open: 3}, nil
}

type stubReturnCaseReader struct{}

func (stubReturnCaseReader) ListReturnCases(_ context.Context, _ model.ReturnCaseListOptions) ([]*model.ReturnCase, error) {
	return nil, nil
}

type stubNotificationReader struct {
	gotSince time.Time
}

func (r *stubNotificationReader) ListNotifications(_ context.Context, _ string, since time.Time) ([]*model.Notification, error) {
	r.gotSince = since
	return nil, nil
}

type stubSearches struct {
	pushed []string
}

func (s *stubSearches) PushSearch(_ context.Context, _ string, term string) error {
	s.pushed = append(s.pushed, term)
	return nil
}

func (s *stubSearches) RecentSearches(_ context.Context, _ string) ([]string, error) {
	return s.pushed, nil
}

func newTestQueryService(t *testing.T, notifications *stubNotificationReader, searches *stubSearches, now time.Time) (*QueryService, *stubAssignmentReader) {
	t.Helper()
	assignments := &stubAssignmentReader{}
	opts := QueryServiceOptions{
		Assignments:   assignments,
		ReturnCases:   stubReturnCaseReader{},
		Notifications: notifications,
		TimeProvider:  data.NewFixedTimeProvider(now),
	}
	if searches != nil {
		opts.RecentSearches = searches
	}
	svc, err := NewQueryService(opts)
	require.NoError(t, err)
	return svc, assignments
}

func TestListNotificationsDefaultWindow(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	notifications := &stubNotificationReader{}
	svc, _ := newTestQueryService(t, notifications, nil, now)

	_, err := svc.ListNotifications(context.Background(), "user-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), notifications.gotSince)

	explicit := now.Add(-time.Hour)
	_, err = svc.ListNotifications(context.Background(), "user-1", explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, notifications.gotSince)
}

func TestListAssignmentsRecordsSearchTerm(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	searches := &stubSearches{}
	svc, assignments := newTestQueryService(t, &stubNotificationReader{}, searches, now)

	term := "main street"
	opts := model.AssignmentListOptions{Search: &term}
	_, err := svc.ListAssignments(context.Background(), opts, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"main street"}, searches.pushed)
	require.NotNil(t, assignments.gotOpts.Search)
	assert.Equal(t, term, *assignments.gotOpts.Search)

	// Blank terms and anonymous callers are not recorded.
	blank := "   "
	_, err = svc.ListAssignments(context.Background(), model.AssignmentListOptions{Search: &blank}, "user-1")
	require.NoError(t, err)
	_, err = svc.ListAssignments(context.Background(), opts, "")
	require.NoError(t, err)
	assert.Len(t, searches.pushed, 1)
}

func TestRecentSearchesWithoutRepository(t *testing.T) {
	svc, _ := newTestQueryService(t, &stubNotificationReader{}, nil, time.Now())
	out, err := svc.RecentSearches(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, out)
}
