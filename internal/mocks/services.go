package mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/cohort-api/internal/domain"
	"github.com/phrazzld/cohort-api/internal/ratefile"
	"github.com/phrazzld/cohort-api/internal/service"
	"github.com/phrazzld/cohort-api/internal/service/auth"
)

// MockProjectionService implements service.ProjectionService for testing.
type MockProjectionService struct {
	ProjectFn func(ctx context.Context, req service.ProjectionRequest) (*service.ProjectionResult, error)
	GetRunFn  func(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error)

	// Default return values
	Result       *service.ProjectionResult
	Run          *domain.ProjectionRun
	DefaultError error
}

var _ service.ProjectionService = (*MockProjectionService)(nil)

// Project implements service.ProjectionService.
func (m *MockProjectionService) Project(
	ctx context.Context,
	req service.ProjectionRequest,
) (*service.ProjectionResult, error) {
	if m.ProjectFn != nil {
		return m.ProjectFn(ctx, req)
	}
	return m.Result, m.DefaultError
}

// GetRun implements service.ProjectionService.
func (m *MockProjectionService) GetRun(ctx context.Context, id uuid.UUID) (*domain.ProjectionRun, error) {
	if m.GetRunFn != nil {
		return m.GetRunFn(ctx, id)
	}
	return m.Run, m.DefaultError
}

// MockBasisService implements service.BasisService for testing.
type MockBasisService struct {
	SaveTableFn  func(ctx context.Context, basis string, tr domain.Transition, table domain.RateTable) error
	GetBasisFn   func(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error)
	ListBasesFn  func(ctx context.Context) ([]string, error)
	ImportFileFn func(ctx context.Context, file *ratefile.File) (int, error)

	// Default return values
	Tables       map[domain.Transition]domain.RateTable
	Bases        []string
	DefaultError error
}

var _ service.BasisService = (*MockBasisService)(nil)

// SaveTable implements service.BasisService.
func (m *MockBasisService) SaveTable(
	ctx context.Context,
	basis string,
	tr domain.Transition,
	table domain.RateTable,
) error {
	if m.SaveTableFn != nil {
		return m.SaveTableFn(ctx, basis, tr, table)
	}
	return m.DefaultError
}

// GetBasis implements service.BasisService.
func (m *MockBasisService) GetBasis(ctx context.Context, basis string) (map[domain.Transition]domain.RateTable, error) {
	if m.GetBasisFn != nil {
		return m.GetBasisFn(ctx, basis)
	}
	return m.Tables, m.DefaultError
}

// ListBases implements service.BasisService.
func (m *MockBasisService) ListBases(ctx context.Context) ([]string, error) {
	if m.ListBasesFn != nil {
		return m.ListBasesFn(ctx)
	}
	return m.Bases, m.DefaultError
}

// ImportFile implements service.BasisService.
func (m *MockBasisService) ImportFile(ctx context.Context, file *ratefile.File) (int, error) {
	if m.ImportFileFn != nil {
		return m.ImportFileFn(ctx, file)
	}
	return 0, m.DefaultError
}

// MockJWTService implements auth.JWTService for testing
type MockJWTService struct {
	// GenerateTokenFn allows test cases to mock the GenerateToken behavior
	GenerateTokenFn func(ctx context.Context, subject string, scopes ...string) (string, error)

	// ValidateTokenFn allows test cases to mock the ValidateToken behavior
	ValidateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)

	// Default values used when functions aren't explicitly defined
	Token       string
	Claims      *auth.Claims
	Err         error
	ValidateErr error
}

var _ auth.JWTService = (*MockJWTService)(nil)

// GenerateToken implements auth.JWTService.
func (m *MockJWTService) GenerateToken(ctx context.Context, subject string, scopes ...string) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, subject, scopes...)
	}
	return m.Token, m.Err
}

// ValidateToken implements auth.JWTService.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	return m.Claims, m.ValidateErr
}
