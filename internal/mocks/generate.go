// Package mocks provides mock implementations for testing the treadscan job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRunner := mocks.NewMockRunner(ctrl)
//	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(status, nil)
package mocks

// Generate mock for the Runner interface from internal/compute.
// This creates MockRunner with the Run method used by the stage pipeline.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=compute_runner_mock.go github.com/treadscan/treadscan/internal/compute Runner

// Generate mock for the ArtifactRepository interface from internal/core.
// This creates MockArtifactRepository with methods:
// Set, Get, Delete, Exists, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=artifact_repository_mock.go github.com/treadscan/treadscan/internal/core ArtifactRepository
