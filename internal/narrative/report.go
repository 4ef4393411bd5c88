package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"goinsight/domain/insight"
)

// Markdown lays a result out as a self-contained markdown report
func Markdown(result insight.NarrativeResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeText(result.MetricName))
	fmt.Fprintf(&b, "_%s; scope: %s", escapeText(result.Unit), result.Context.Scope)
	var filters []string
	if len(result.Context.Filters.Entities) > 0 {
		filters = append(filters, strings.Join(result.Context.Filters.Entities, ", "))
	}
	if d := result.Context.Filters.Describe(); d != "" {
		filters = append(filters, d)
	}
	if len(filters) > 0 {
		fmt.Fprintf(&b, " (%s)", escapeText(strings.Join(filters, "; ")))
	}
	b.WriteString("_\n\n")

	if result.Summary != "" {
		fmt.Fprintf(&b, "**Summary.** %s\n\n", escapeText(result.Summary))
	}
	if result.KeyFinding != "" && result.KeyFinding != result.Summary {
		fmt.Fprintf(&b, "**Key finding.** %s\n\n", escapeText(result.KeyFinding))
	}
	if result.Recommendation != "" {
		fmt.Fprintf(&b, "**Recommendation.** %s\n\n", escapeText(result.Recommendation))
	}

	if len(result.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, in := range result.Insights {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", in.RuleID, in.Severity, escapeText(in.Text))
		}
		b.WriteString("\n")
	}

	if len(result.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, s := range result.Sources {
			b.WriteString("- " + citation(s) + "\n")
		}
		b.WriteString("\n")
	}

	if len(result.Evidence) > 0 {
		b.WriteString("## Evidence\n\n| Rule | Outcome | Code | Reason |\n|---|---|---|---|\n")
		ids := make([]string, 0, len(result.Evidence))
		for id := range result.Evidence {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			rec := result.Evidence[id]
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", id, rec.Outcome, rec.Code, escapeCell(escapeText(rec.Reason)))
		}
	}
	return b.String()
}

// HTML renders the markdown report to an HTML fragment. Raw HTML in the
// markdown is dropped and only safe link schemes are kept.
func HTML(result insight.NarrativeResult) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.Safelink})
	return markdown.ToHTML([]byte(Markdown(result)), p, renderer)
}

func citation(s insight.Source) string {
	out := escapeText(s.Name)
	if s.Publisher != "" {
		out += ", " + escapeText(s.Publisher)
	}
	if s.Year > 0 {
		out += fmt.Sprintf(" (%d)", s.Year)
	}
	if s.URL != "" {
		out = fmt.Sprintf("[%s](%s)", out, s.URL)
	}
	return out
}

// markdownEscaper backslash-escapes characters that would start inline HTML,
// links or emphasis. Filter values and group names come from requests and
// input data.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"<", `\<`,
	">", `\>`,
	"&", `\&`,
	"[", `\[`,
	"]", `\]`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
)

func escapeText(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
