package webchat

import (
	"regexp"
	"strings"
)

// tableSeparator matches the divider row between a markdown table header and
// its body: pipes, hyphens, colons and whitespace only.
var tableSeparator = regexp.MustCompile(`^[\s|:-]+$`)

// ExtractTables replaces every valid markdown table in text with a rendered
// <table class="chat-table"> fragment. A table is a run of three or more
// consecutive pipe-containing lines whose second line is a separator row.
// Runs that fail that test, and all other lines, pass through verbatim.
// Extraction never fails: on an internal error the input is returned as-is.
func ExtractTables(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()

	out, _ = extractTables(text, nil)
	return out
}

// extractTables scans text line by line and renders each qualifying run into
// a table fragment. With a nil token func the fragment is inlined where the
// run stood; otherwise token(i) is substituted and the fragments are returned
// separately, which lets the render pipeline keep them shielded from later
// substitution stages without re-parsing its own output.
func extractTables(text string, token func(int) string) (string, []string) {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	var fragments []string

	for i := 0; i < len(lines); {
		if !strings.Contains(lines[i], "|") {
			result = append(result, lines[i])
			i++
			continue
		}

		// Greedily collect the maximal run of pipe-containing lines.
		j := i
		for j < len(lines) && strings.Contains(lines[j], "|") {
			j++
		}
		run := lines[i:j]

		if len(run) >= 3 && tableSeparator.MatchString(run[1]) {
			fragments = append(fragments, renderTable(run))
			if token != nil {
				result = append(result, token(len(fragments)-1))
			} else {
				result = append(result, fragments[len(fragments)-1])
			}
		} else {
			// Not enough rows or a broken separator: keep the pipes literal.
			result = append(result, run...)
		}
		i = j
	}

	return strings.Join(result, "\n"), fragments
}

// renderTable builds the HTML fragment for a validated run. Cell text is
// escaped here because extraction runs before the pipeline's escape stage.
func renderTable(run []string) string {
	var b strings.Builder
	b.WriteString(`<table class="chat-table"><thead><tr>`)
	for _, cell := range splitRow(run[0]) {
		b.WriteString("<th>")
		b.WriteString(escapeHTML(cell))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range run[2:] {
		cells := splitRow(row)
		if len(cells) == 0 {
			continue
		}
		b.WriteString("<tr>")
		for _, cell := range cells {
			b.WriteString("<td>")
			b.WriteString(escapeHTML(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// splitRow splits a table row on pipes, trims each cell and drops empty
// cells, so a row that opens and closes with "|" yields no phantom cells.
func splitRow(row string) []string {
	parts := strings.Split(row, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cells = append(cells, p)
	}
	return cells
}
