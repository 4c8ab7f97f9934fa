package analyzer

import (
	"fmt"

	"github.com/kiranshivaraju/docextract/internal/analyzer/azure"
	"github.com/kiranshivaraju/docextract/internal/analyzer/mock"
	"github.com/kiranshivaraju/docextract/internal/config"
	"github.com/kiranshivaraju/docextract/pkg/models"
)

// NewAnalyzer constructs the document analyzer selected by config.
// Called once at server startup.
func NewAnalyzer(cfg config.AnalyzerConfig) (models.DocumentAnalyzer, error) {
	switch cfg.Provider {
	case "azure":
		return azure.NewClient(cfg.Azure), nil
	case "mock":
		return mock.NewMockAnalyzer(), nil
	default:
		return nil, fmt.Errorf("unknown analyzer %q: must be one of azure, mock", cfg.Provider)
	}
}
