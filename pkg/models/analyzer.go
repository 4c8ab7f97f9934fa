// Package models contains shared data models used across the docextract codebase.
package models

import "context"

// DocumentAnalyzer is the core interface every remote analysis integration must implement.
// Never call a vendor client directly from request or job code; inject this interface.
type DocumentAnalyzer interface {
	// Analyze extracts text and tables from the raw document bytes.
	Analyze(ctx context.Context, document []byte) (*AnalysisResult, error)
	// Name returns the analyzer identifier (e.g., "azure", "mock").
	Name() string
}
