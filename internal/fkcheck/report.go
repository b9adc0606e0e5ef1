package fkcheck

import (
	"fmt"
	"io"
	"strings"
)

const reportRule = "================================================================================"

// Render writes the detailed human-readable report
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder

	b.WriteString("FK REPORT\n")
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Total tables detected : %d\n", len(r.Tables))
	fmt.Fprintf(&b, "Total FK candidates   : %d\n", len(r.Candidates))
	fmt.Fprintf(&b, "Missing FK targets    : %d\n", len(r.Missing))
	b.WriteString(reportRule + "\n\n")

	if len(r.ParseErrors) > 0 {
		b.WriteString("Parse errors:\n")
		for _, pe := range r.ParseErrors {
			fmt.Fprintf(&b, " - %s: %v\n", pe.File, pe.Err)
		}
		b.WriteString("\n")
	}

	if len(r.Candidates) == 0 {
		b.WriteString("No FK candidates detected.\n\n")
	}

	if len(r.Missing) > 0 {
		b.WriteString("Missing targets detail:\n")
		for i, m := range r.Missing {
			fmt.Fprintf(&b, "%3d. [%s] %s -> %s (file: %s)", i+1, m.Table, m.Field, m.Target, m.File)
			if m.Suggestion != "" {
				fmt.Fprintf(&b, " (did you mean %q?)", m.Suggestion)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("All FK targets exist.\n\n")
	}

	b.WriteString("Tables (sorted):\n")
	for _, t := range r.Tables {
		fmt.Fprintf(&b, " - %s\n", t)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary returns the short terminal summary
func (r *Report) Summary() string {
	var b strings.Builder
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Tables detected       : %d\n", len(r.Tables))
	if len(r.Tables) > 0 {
		sample := r.Tables
		if len(sample) > 10 {
			sample = sample[:10]
		}
		fmt.Fprintf(&b, "Sample tables         : %s\n", strings.Join(sample, ", "))
	}
	fmt.Fprintf(&b, "FK candidates         : %d\n", len(r.Candidates))
	fmt.Fprintf(&b, "Missing FK targets    : %d\n", len(r.Missing))
	b.WriteString(reportRule + "\n")

	if len(r.ParseErrors) > 0 {
		fmt.Fprintf(&b, "%d document(s) failed to parse; see the report for details.\n", len(r.ParseErrors))
	}
	if len(r.Candidates) == 0 {
		b.WriteString("No FK candidates detected from the recognized conventions.\n")
	}
	if len(r.Missing) == 0 {
		b.WriteString("All FK targets resolve to a known table.\n")
	}
	return b.String()
}
