package core

import "fmt"

// MedicalDisclaimer is shown inside every expanded card.
const MedicalDisclaimer = "This information is for educational purposes only. " +
	"Always consult healthcare professionals for medical advice and diagnosis."

// ResultsDisclaimer is the footer under the result list.
const ResultsDisclaimer = "This tool uses AI for preliminary analysis and should not replace " +
	"professional medical diagnosis. Always consult healthcare providers for accurate diagnosis and treatment."

// ResultItem is one rendered record with its own expand flag.
type ResultItem struct {
	Index    int                  `json:"index" yaml:"index"`
	Record   ClassificationRecord `json:"record" yaml:"record"`
	Expanded bool                 `json:"expanded" yaml:"expanded"`
}

// Toggle flips this item's expansion flag.
func (i *ResultItem) Toggle() {
	i.Expanded = !i.Expanded
}

// Severity returns the band of the item's confidence.
func (i ResultItem) Severity() Severity {
	return i.Record.Severity()
}

// ResultsView is the ordered list of items for one successful result.
// Items are keyed by position; only position 0 starts expanded.
type ResultsView struct {
	items []ResultItem
}

// NewResultsView builds the items in result order.
func NewResultsView(result ClassificationResult) *ResultsView {
	items := make([]ResultItem, len(result))
	for i, rec := range result {
		items[i] = ResultItem{
			Index:    i,
			Record:   rec,
			Expanded: i == 0,
		}
	}
	return &ResultsView{items: items}
}

// Len returns the number of items.
func (v *ResultsView) Len() int {
	if v == nil {
		return 0
	}
	return len(v.items)
}

// Items returns a copy of the items.
func (v *ResultsView) Items() []ResultItem {
	if v == nil {
		return nil
	}
	out := make([]ResultItem, len(v.items))
	copy(out, v.items)
	return out
}

// Toggle flips the item at index and leaves every other item unchanged.
func (v *ResultsView) Toggle(index int) error {
	if v == nil || index < 0 || index >= len(v.items) {
		return fmt.Errorf("%w: %d", ErrUnknownCard, index)
	}
	v.items[index].Toggle()
	return nil
}

// Section says what the results area shows for an outcome.
type Section int

const (
	SectionNone Section = iota
	SectionError
	SectionResults
)

// SectionFor renders nothing while idle or loading, the error panel on
// failure and the list on success.
func SectionFor(o Outcome) Section {
	switch o.State {
	case StateFailure:
		return SectionError
	case StateSuccess:
		return SectionResults
	default:
		return SectionNone
	}
}
