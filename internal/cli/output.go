package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/RareDx/internal/core"
)

// report is the printable form of one classification. Collapsed candidates
// carry only their name, score and band.
type report struct {
	File        core.FileInfo `json:"file" yaml:"file"`
	Predictions []prediction  `json:"predictions" yaml:"predictions"`
}

type prediction struct {
	Rank        int     `json:"rank" yaml:"rank"`
	Disease     string  `json:"disease" yaml:"disease"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Severity    string  `json:"severity" yaml:"severity"`
	Expanded    bool    `json:"-" yaml:"-"`
	Prevalence  string  `json:"prevalence,omitempty" yaml:"prevalence,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Symptoms    string  `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	Treatment   string  `json:"treatment,omitempty" yaml:"treatment,omitempty"`
}

func newReport(file core.FileInfo, items []core.ResultItem) report {
	file.PreviewToken = ""

	r := report{File: file, Predictions: make([]prediction, 0, len(items))}
	for _, item := range items {
		p := prediction{
			Rank:       item.Index + 1,
			Disease:    item.Record.DiseaseName,
			Confidence: item.Record.Confidence,
			Severity:   item.Severity().String(),
			Expanded:   item.Expanded,
		}
		if item.Expanded {
			p.Prevalence = item.Record.Prevalence
			p.Description = item.Record.Description
			p.Symptoms = item.Record.Symptoms
			p.Treatment = item.Record.Treatment
		}
		r.Predictions = append(r.Predictions, p)
	}
	return r
}

func writeReport(w io.Writer, format outputFormat, r report) error {
	switch format {
	case formatYAML:
		return encodeYAML(w, r)
	case formatJSON:
		return encodeJSON(w, r)
	}

	fmt.Fprintf(w, "%s (%s)\n\n", r.File.Name, r.File.Summary())
	fmt.Fprintln(w, "Classification Results")
	fmt.Fprintln(w, "Based on the uploaded image, here are the possible conditions:")
	fmt.Fprintln(w)

	for _, p := range r.Predictions {
		fmt.Fprintf(w, "%d. %s  %s  [%s]\n", p.Rank, p.Disease,
			core.ClassificationRecord{Confidence: p.Confidence}.ConfidenceLabel(), p.Severity)
		if !p.Expanded {
			continue
		}
		fmt.Fprintf(w, "   Prevalence: %s\n", p.Prevalence)
		for _, section := range []struct{ title, text string }{
			{"Description", p.Description},
			{"Symptoms", p.Symptoms},
			{"Treatment", p.Treatment},
		} {
			if section.text != "" {
				fmt.Fprintf(w, "   %s: %s\n", section.title, section.text)
			}
		}
		fmt.Fprintf(w, "   Medical Disclaimer: %s\n", core.MedicalDisclaimer)
	}

	if len(r.Predictions) == 0 {
		fmt.Fprintln(w, "No candidate conditions returned.")
	}

	fmt.Fprintf(w, "\nNote: %s\n", core.ResultsDisclaimer)
	return nil
}

func writeDiseases(w io.Writer, format outputFormat, diseases []string) error {
	if diseases == nil {
		diseases = []string{}
	}

	switch format {
	case formatYAML:
		return encodeYAML(w, map[string][]string{"diseases": diseases})
	case formatJSON:
		return encodeJSON(w, map[string][]string{"diseases": diseases})
	}

	for _, d := range diseases {
		fmt.Fprintln(w, d)
	}
	fmt.Fprintf(w, "\n%d rare diseases in database\n", len(diseases))
	return nil
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
