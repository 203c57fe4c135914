package catalog

import (
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Directive renders the step into the instruction text sent to the model
// for one hidden exchange. Optional lists are omitted when empty.
func (s Step) Directive() string {
	var b strings.Builder

	b.WriteString("Action: ")
	b.WriteString(s.Action)
	b.WriteString("\n")
	b.WriteString(s.Prompt)
	b.WriteString("\n\n")

	writeList(&b, "With the following Examples: ", s.Examples)
	writeList(&b, "With the following Templates: ", s.Templates)
	writeList(&b, "While keeping in mind the following Dimensions: ", s.Dimensions)
	writeList(&b, "While keeping in mind the following Techniques: ", s.Techniques)

	return strings.TrimRight(b.String(), "\n")
}

// Directives renders every step of the category, in order.
func (c Category) Directives() []string {
	out := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Directive()
	}
	return out
}

// Guidance renders the category-level system message that frames the hidden
// reasoning steps.
func (c Category) Guidance() string {
	var b strings.Builder

	b.WriteString("For the ")
	b.WriteString(c.Name)
	b.WriteString(" thought process, ")
	b.WriteString(c.Preamble)
	b.WriteString("\n\nConsider the following ideas:\n")
	b.WriteString(strings.Join(c.Principles, "\n"))
	b.WriteString("\n\nAlso make sure to abide by the following safety protocols:\n")
	b.WriteString(strings.Join(c.SafetyProtocols, "\n"))
	b.WriteString("\n\nThe following few prompts are your thoughts and the user will not be aware of them. ")
	b.WriteString("When told to, make sure to summarize with relevant information.")

	return b.String()
}

// Guidance renders the global system message placed at the start of every
// conversation.
func (g GlobalMeta) Guidance() string {
	var b strings.Builder

	b.WriteString("You are a helpful AI assistant.\n\n")
	b.WriteString("With the following core principles:\n")
	b.WriteString(strings.Join(g.CorePrinciples, "\n"))
	b.WriteString("\n\nWith the following safeguards:\n")
	b.WriteString(strings.Join(g.UniversalSafeguards, "\n"))
	b.WriteString("\n\nAnd the following performance metrics:\n")
	b.WriteString(strings.Join(g.PerformanceMetrics, "\n"))
	b.WriteString("\n\nPerform your best to answer any questions.")

	return b.String()
}

// DiffNames returns a unified diff of the category names of two catalogs,
// one name per line. It returns an empty string when the names are equal.
func DiffNames(before, after *Catalog) string {
	if before == nil {
		before = Empty()
	}
	if after == nil {
		after = Empty()
	}
	if slices.Equal(before.names, after.names) {
		return ""
	}

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(before.names),
		B:        lines(after.names),
		FromFile: "reasoners (before)",
		ToFile:   "reasoners (after)",
		Context:  0,
	})
	if err != nil {
		return ""
	}
	return out
}

func lines(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + "\n"
	}
	return out
}

func writeList(b *strings.Builder, lead string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(lead)
	b.WriteString(strings.Join(items, "\n"))
	b.WriteString("\n")
}
