package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
)

// notificationWindow is the default lookback for notification listing.
const notificationWindow = 7 * 24 * time.Hour

// QueryServiceOptions groups the dependencies for NewQueryService.
type QueryServiceOptions struct {
	Assignments   core.AssignmentReader
	ReturnCases   core.ReturnCaseReader
	Notifications core.NotificationReader
	// RecentSearches is optional; without it search terms are not recorded.
	RecentSearches core.RecentSearchRepository
	TimeProvider   interface{ Now() time.Time }
	Logger         *slog.Logger
}

// QueryService serves the read side: assignment lists, status counts,
// pending return cases, notifications and recent searches.
type QueryService struct {
	assignments    core.AssignmentReader
	returnCases    core.ReturnCaseReader
	notifications  core.NotificationReader
	recentSearches core.RecentSearchRepository
	now            func() time.Time
	logger         *slog.Logger
}

// NewQueryService creates a QueryService with the given options.
func NewQueryService(opts QueryServiceOptions) (*QueryService, error) {
	if opts.Assignments == nil {
		return nil, errors.New("assignment reader is required")
	}
	if opts.ReturnCases == nil {
		return nil, errors.New("return case reader is required")
	}
	if opts.Notifications == nil {
		return nil, errors.New("notification reader is required")
	}
	now := time.Now
	if opts.TimeProvider != nil {
		now = opts.TimeProvider.Now
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "query_service")
	}
	return &QueryService{
		assignments:    opts.Assignments,
		returnCases:    opts.ReturnCases,
		notifications:  opts.Notifications,
		recentSearches: opts.RecentSearches,
		now:            now,
		logger:         logger,
	}, nil
}

// ListAssignments lists assignment rows with their jobs. When the caller
// searched by term, the term is recorded in the user's recent searches;
// recording failures never fail the list.
func (s *QueryService) ListAssignments(ctx context.Context, opts model.AssignmentListOptions, userID string) ([]*model.AssignmentWithJob, error) {
	out, err := s.assignments.ListAssignments(ctx, opts)
	if err != nil {
		return nil, err
	}
	if s.recentSearches != nil && userID != "" && opts.Search != nil {
		if term := strings.TrimSpace(*opts.Search); term != "" {
			if err := s.recentSearches.PushSearch(ctx, userID, term); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "recording recent search failed", "error", err)
			}
		}
	}
	return out, nil
}

// StatusCounts reports open/partial/return/transfer counts over active
// assignments.
func (s *QueryService) StatusCounts(ctx context.Context, opts model.AssignmentListOptions) (*model.JobStatusCounts, error) {
	return s.assignments.StatusCounts(ctx, opts)
}

// ListReturnCases lists the pending return cases a user may resolve.
func (s *QueryService) ListReturnCases(ctx context.Context, opts model.ReturnCaseListOptions) ([]*model.ReturnCase, error) {
	return s.returnCases.ListReturnCases(ctx, opts)
}

// ListNotifications lists a user's notifications since the given time, or
// over the default window when since is zero.
func (s *QueryService) ListNotifications(ctx context.Context, userID string, since time.Time) ([]*model.Notification, error) {
	if since.IsZero() {
		since = s.now().Add(-notificationWindow)
	}
	return s.notifications.ListNotifications(ctx, userID, since)
}

// RecentSearches returns the user's newest search terms.
func (s *QueryService) RecentSearches(ctx context.Context, userID string) ([]string, error) {
	if s.recentSearches == nil {
		return nil, nil
	}
	return s.recentSearches.RecentSearches(ctx, userID)
}
