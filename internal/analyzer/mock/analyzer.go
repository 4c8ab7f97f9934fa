package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/docextract/pkg/models"
)

// MockAnalyzer satisfies models.DocumentAnalyzer for testing and local development.
type MockAnalyzer struct {
	Name_       string
	Model_      string
	AnalyzeFunc func(ctx context.Context, document []byte) (*models.AnalysisResult, error)

	calls atomic.Int64
}

func (m *MockAnalyzer) Name() string { return m.Name_ }

func (m *MockAnalyzer) Model() string { return m.Model_ }

func (m *MockAnalyzer) Analyze(ctx context.Context, document []byte) (*models.AnalysisResult, error) {
	m.calls.Add(1)
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, document)
	}
	return &models.AnalysisResult{Tables: []models.Table{}}, nil
}

// Calls returns how many times Analyze has been invoked.
func (m *MockAnalyzer) Calls() int64 { return m.calls.Load() }

// SampleResult is the analysis NewMockAnalyzer returns: one 2x2 table.
func SampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ModelID: "mock-v1",
		Content: "Item Qty\nWidget 4",
		Pages:   1,
		Tables: []models.Table{{
			RowCount:    2,
			ColumnCount: 2,
			Cells: []models.Cell{
				{Kind: "columnHeader", RowIndex: 0, ColumnIndex: 0, Content: "Item"},
				{Kind: "columnHeader", RowIndex: 0, ColumnIndex: 1, Content: "Qty"},
				{RowIndex: 1, ColumnIndex: 0, Content: "Widget"},
				{RowIndex: 1, ColumnIndex: 1, Content: "4"},
			},
			BoundingRegions: []models.BoundingRegion{{PageNumber: 1}},
		}},
	}
}

// NewMockAnalyzer returns a MockAnalyzer that succeeds with SampleResult.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{
		Name_: "mock",
		AnalyzeFunc: func(_ context.Context, _ []byte) (*models.AnalysisResult, error) {
			return SampleResult(), nil
		},
	}
}

// NewFailingAnalyzer returns a MockAnalyzer that always returns the given error.
func NewFailingAnalyzer(err error) *MockAnalyzer {
	return &MockAnalyzer{
		Name_: "mock-failing",
		AnalyzeFunc: func(_ context.Context, _ []byte) (*models.AnalysisResult, error) {
			return nil, err
		},
	}
}

// NewBlockingAnalyzer returns a MockAnalyzer that waits for release to be
// closed (then succeeds with SampleResult) or for ctx to be done.
func NewBlockingAnalyzer(release <-chan struct{}) *MockAnalyzer {
	return &MockAnalyzer{
		Name_: "mock-blocking",
		AnalyzeFunc: func(ctx context.Context, _ []byte) (*models.AnalysisResult, error) {
			select {
			case <-release:
				return SampleResult(), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

// Compile-time check that MockAnalyzer implements DocumentAnalyzer.
var _ models.DocumentAnalyzer = (*MockAnalyzer)(nil)
