package core

import "strconv"

// ClassificationRecord is one ranked candidate returned by the classifier.
// Records are values; nothing mutates them after decoding.
type ClassificationRecord struct {
	DiseaseName string  `json:"disease" yaml:"disease"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Description string  `json:"description" yaml:"description"`
	Symptoms    string  `json:"symptoms" yaml:"symptoms"`
	Treatment   string  `json:"treatment" yaml:"treatment"`
	Prevalence  string  `json:"prevalence" yaml:"prevalence"`
}

// Severity returns the display band for the record's confidence.
func (r ClassificationRecord) Severity() Severity {
	return SeverityFor(r.Confidence)
}

// ConfidenceLabel renders the score the way the result cards show it,
// e.g. "82% confidence" or "61.5% confidence".
func (r ClassificationRecord) ConfidenceLabel() string {
	return strconv.FormatFloat(r.Confidence, 'f', -1, 64) + "% confidence"
}

// ClassificationResult is the ordered candidate list, in the rank order the
// classifier returned. It is never re-sorted.
type ClassificationResult []ClassificationRecord

// Severity is a three-level band over a confidence score. It only drives
// display emphasis; it never filters or reorders records.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// Band thresholds are inclusive lower bounds.
const (
	HighConfidenceThreshold   = 70.0
	MediumConfidenceThreshold = 40.0
)

// SeverityFor maps a confidence percentage to its band.
func SeverityFor(confidence float64) Severity {
	switch {
	case confidence >= HighConfidenceThreshold:
		return SeverityHigh
	case confidence >= MediumConfidenceThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Color is the badge colour for the band.
func (s Severity) Color() string {
	switch s {
	case SeverityHigh:
		return "#27ae60"
	case SeverityMedium:
		return "#f39c12"
	default:
		return "#e74c3c"
	}
}
