package models

// AnalysisResult is the structured output of a remote document analysis.
// Field names follow the vendor's camelCase wire format so the downloaded
// artifact matches what the analysis service returns.
type AnalysisResult struct {
	ModelID string  `json:"modelId,omitempty"`
	Content string  `json:"content"`
	Pages   int     `json:"pages,omitempty"`
	Tables  []Table `json:"tables"`
}

// Table is one table detected in the document.
type Table struct {
	RowCount        int              `json:"rowCount"`
	ColumnCount     int              `json:"columnCount"`
	Cells           []Cell           `json:"cells"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
	Spans           []Span           `json:"spans,omitempty"`
}

// Cell is a single table cell. Kind is empty for plain content cells and
// "columnHeader", "rowHeader", "stubHead" or "description" otherwise.
type Cell struct {
	Kind            string           `json:"kind,omitempty"`
	RowIndex        int              `json:"rowIndex"`
	ColumnIndex     int              `json:"columnIndex"`
	RowSpan         int              `json:"rowSpan,omitempty"`
	ColumnSpan      int              `json:"columnSpan,omitempty"`
	Content         string           `json:"content"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
	Spans           []Span           `json:"spans,omitempty"`
}

// BoundingRegion locates an element on a 1-based page.
type BoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon,omitempty"`
}

// Span is a character range into AnalysisResult.Content.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}
