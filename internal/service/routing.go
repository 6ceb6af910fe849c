// Package service implements the work-order routing operations: creation,
// transfer, close, return and duplicate handling. Every state-changing
// operation runs in a single transaction that locks the job row first, so
// concurrent transitions on the same job serialize.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/data"
	"github.com/fieldops/workorder-api/internal/data/pgxutil"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// RoutingServiceOptions groups the dependencies for NewRoutingService.
type RoutingServiceOptions struct {
	DB     *sql.DB
	Store  core.RoutingStore
	Groups core.GroupDirectory
	// Push is optional; when nil, notification rows are still persisted but
	// no push delivery happens.
	Push         core.PushSender
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// RoutingService coordinates all job routing state transitions.
type RoutingService struct {
	db           *sql.DB
	store        core.RoutingStore
	groups       core.GroupDirectory
	push         core.PushSender
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewRoutingService creates a RoutingService with the given options.
func NewRoutingService(opts RoutingServiceOptions) (*RoutingService, error) {
	if opts.DB == nil {
		return nil, errors.New("db is required")
	}
	if opts.Store == nil {
		return nil, errors.New("routing store is required")
	}
	if opts.Groups == nil {
		return nil, errors.New("group directory is required")
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = data.NewRealTimeProvider()
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "routing_service")
	}
	return &RoutingService{
		db:           opts.DB,
		store:        opts.Store,
		groups:       opts.Groups,
		push:         opts.Push,
		timeProvider: tp,
		logger:       logger,
	}, nil
}

// MustNewRoutingService creates a RoutingService and panics on invalid options.
func MustNewRoutingService(opts RoutingServiceOptions) *RoutingService {
	s, err := NewRoutingService(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// withTx runs fn in a single pgx transaction over the service pool.
func (s *RoutingService) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgxutil.WithPgxTx(ctx, s.db, pgxutil.TxConfig{Fn: fn})
}

// loadRouting reads the job together with its full assignment set.
func (s *RoutingService) loadRouting(ctx context.Context, tx pgx.Tx, jobID string) (*model.JobRouting, error) {
	job, err := s.store.LockJob(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListJobAssignments(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	return &model.JobRouting{Job: *job, Assignments: assignments}, nil
}

// newLog builds the audit entry for an action, filling the single actor
// column that matches it.
func newLog(jobID string, action model.LogAction, actor string) *model.JobLog {
	l := &model.JobLog{JobID: jobID, Action: action}
	switch action {
	case model.LogActionCreate:
		l.CreatedBy = &actor
	case model.LogActionUpdate:
		l.UpdatedBy = &actor
	case model.LogActionTransfer:
		l.TransferredBy = &actor
	case model.LogActionReturn:
		l.ReturnedBy = &actor
	case model.LogActionClose:
		l.ClosedBy = &actor
	case model.LogActionPartial:
		l.PartiallyClosedBy = &actor
	}
	return l
}

// homeOf returns the home assignment of the set, or an internal error when a
// non-empty set has none.
func homeOf(assignments []model.Assignment) (*model.Assignment, error) {
	for i := range assignments {
		if assignments[i].IsHome {
			return &assignments[i], nil
		}
	}
	return nil, apperrors.Internal("job has no home assignment")
}

func (s *RoutingService) debug(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.DebugContext(ctx, msg, args...)
	}
}

func (s *RoutingService) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func ptr[T any](v T) *T { return &v }
