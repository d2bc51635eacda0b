package usage

import (
	"fmt"
	"strings"
)

// Markdown renders the model as a markdown help page.
func (m *Model) Markdown() string {
	var sb strings.Builder

	title := m.Title
	if title == "" {
		title = m.Command
	}
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	if m.Header != "" {
		sb.WriteString(m.Header + "\n\n")
	}
	if m.Example != "" {
		fmt.Fprintf(&sb, "```\n%s\n```\n\n", m.Example)
	}

	writeSection(&sb, "Required parameters", m.Required)
	writeSection(&sb, "Optional parameters", m.Optional)
	writeSection(&sb, "Provide one of", m.OneOf)

	if len(m.Available) > 0 {
		sb.WriteString("## Available commands\n\n")
		for _, e := range m.Available {
			if e.Docs != "" {
				fmt.Fprintf(&sb, "- `%s` %s\n", e.Command, e.Docs)
			} else {
				fmt.Fprintf(&sb, "- `%s`\n", e.Command)
			}
		}
		sb.WriteString("\n")
	}

	if len(m.Related) > 0 {
		fmt.Fprintf(&sb, "Related: %s\n", strings.Join(m.Related, ", "))
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeSection(sb *strings.Builder, heading string, rows []Row) {
	var visible []Row
	for _, r := range rows {
		if !r.Hidden {
			visible = append(visible, r)
		}
	}
	if len(visible) == 0 {
		return
	}

	fmt.Fprintf(sb, "## %s\n\n", heading)
	for _, r := range visible {
		name := "`" + r.Name
		if r.Alias != "" {
			name += ", " + r.Alias
		}
		if r.Example != "" {
			name += " " + r.Example
		}
		name += "`"

		docs := r.Docs
		if len(r.AllowedValues) > 0 {
			docs = strings.TrimSpace(docs + " (one of " + strings.Join(r.AllowedValues, ", ") + ")")
		}
		if docs != "" {
			fmt.Fprintf(sb, "- %s %s\n", name, docs)
		} else {
			fmt.Fprintf(sb, "- %s\n", name)
		}
	}
	sb.WriteString("\n")
}
