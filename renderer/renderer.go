// Package renderer renders the family finances as markdown.
//
// Every report is a text/template assembled from a main template and named
// partials, all embedded from templates/.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	// cell escapes a value for a markdown table cell.
	"cell": func(v any) string {
		s := strings.ReplaceAll(fmt.Sprint(v), "|", `\|`)
		return strings.ReplaceAll(s, "\n", " ")
	},
}

// RenderDashboard renders the dashboard: summary figures, accounts and
// recent transactions.
func RenderDashboard(d *Dashboard) string {
	partials := map[string]string{
		"dashboard_summary":  "dashboard_summary.md",
		"accounts_table":     "accounts_table.md",
		"transactions_table": "transactions_table.md",
	}
	return renderTemplate("dashboard", "dashboard.md", partials, d)
}

// RenderAccounts renders a list of accounts and their total.
func RenderAccounts(l *AccountList) string {
	partials := map[string]string{
		"accounts_table": "accounts_table.md",
	}
	return renderTemplate("accounts", "accounts.md", partials, l)
}

// RenderTransactions renders a list of transactions.
func RenderTransactions(l *TransactionList) string {
	partials := map[string]string{
		"transactions_table": "transactions_table.md",
	}
	return renderTemplate("transactions", "transactions.md", partials, l)
}

// RenderStats renders the account counts, the balances per currency and the
// number of transactions.
func RenderStats(s *Stats) string {
	return renderTemplate("stats", "stats.md", nil, s)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
