// Package mocks provides mock implementations for testing the workorder
// routing system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the core ports. The mocks are generated using go:generate directives.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	dir := mocks.NewMockGroupDirectory(ctrl)
//	dir.EXPECT().ListMembers(gomock.Any(), gomock.Any()).Return(members, nil)
package mocks

// Generate mock for the GroupDirectory port from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=group_directory_mock.go github.com/fieldops/workorder-api/internal/core GroupDirectory

// Generate mock for the PushSender port from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=push_sender_mock.go github.com/fieldops/workorder-api/internal/core PushSender
