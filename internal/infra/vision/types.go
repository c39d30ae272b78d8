package vision

import "ocr2docx/internal/domain"

// ReadOperation is the body of GET .../read/analyzeResults/{operationId}.
type ReadOperation struct {
	Status              domain.JobStatus `json:"status"`
	CreatedDateTime     string           `json:"createdDateTime,omitempty"`
	LastUpdatedDateTime string           `json:"lastUpdatedDateTime,omitempty"`
	AnalyzeResult       *AnalyzeResult   `json:"analyzeResult,omitempty"`
}

// AnalyzeResult holds the recognized pages.
type AnalyzeResult struct {
	Version      string       `json:"version,omitempty"`
	ModelVersion string       `json:"modelVersion,omitempty"`
	ReadResults  []ReadResult `json:"readResults"`
}

// ReadResult is one page.
type ReadResult struct {
	Page   int     `json:"page"`
	Angle  float64 `json:"angle"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit,omitempty"`
	Lines  []Line  `json:"lines"`
}

// Line is one recognized line of text.
type Line struct {
	BoundingBox []float64 `json:"boundingBox,omitempty"`
	Text        string    `json:"text"`
	Words       []Word    `json:"words,omitempty"`
}

// Word is one recognized word.
type Word struct {
	BoundingBox []float64 `json:"boundingBox,omitempty"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
}

// Lines returns the line texts, pages in order and lines in order within a
// page.
func (op *ReadOperation) Lines() []string {
	if op == nil || op.AnalyzeResult == nil {
		return nil
	}
	var lines []string
	for _, page := range op.AnalyzeResult.ReadResults {
		for _, l := range page.Lines {
			lines = append(lines, l.Text)
		}
	}
	return lines
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
