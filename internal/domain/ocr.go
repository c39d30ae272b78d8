package domain

import "strings"

// JobStatus is the status string reported by the OCR service for an
// asynchronous read operation.
type JobStatus string

const (
	StatusNotStarted JobStatus = "notStarted"
	StatusRunning    JobStatus = "running"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
)

// InProgress reports whether the job may still change status. The comparison
// ignores case.
func (s JobStatus) InProgress() bool {
	switch strings.ToLower(string(s)) {
	case "notstarted", "running":
		return true
	}
	return false
}

// Succeeded reports whether the job finished with a usable result.
func (s JobStatus) Succeeded() bool {
	return strings.EqualFold(string(s), string(StatusSucceeded))
}

// ExtractedText is the recognized text of one image: every line followed by a
// newline, pages in order.
type ExtractedText string

// JoinLines builds ExtractedText from lines already in reading order.
func JoinLines(lines []string) ExtractedText {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return ExtractedText(b.String())
}

// Lines splits the text back into its lines.
func (t ExtractedText) Lines() []string {
	s := strings.TrimSuffix(string(t), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
