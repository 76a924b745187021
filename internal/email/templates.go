package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"github.com/ceodesk/errnotify/internal/report"
)

// DefaultBrand is used when no application name is configured.
const DefaultBrand = "Backend"

var (
	//go:embed templates/error_alert.html
	errorAlertTemplateRaw string

	errorAlertTemplate = template.Must(
		template.New("errorAlert").Funcs(templateFuncs()).Parse(errorAlertTemplateRaw),
	)

	textReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func templateFuncs() template.FuncMap {
	funcs := sprig.FuncMap()
	funcs["text"] = htmlText
	return funcs
}

// htmlText escapes only the characters that would change the markup, so
// quotes and apostrophes in error text reach the document unchanged.
func htmlText(s string) template.HTML {
	return template.HTML(textReplacer.Replace(s))
}

type errorAlertParams struct {
	Brand  string
	Report *report.Report
}

// ErrorAlertSubject returns the subject line for an error alert email.
func ErrorAlertSubject(r *report.Report) string {
	return "🚨 Backend Error Alert: " + r.Kind
}

// ErrorAlertHTML renders the HTML body for an error alert email.
func ErrorAlertHTML(r *report.Report, brand string) (string, error) {
	var buf bytes.Buffer
	params := errorAlertParams{Brand: brandOrDefault(brand), Report: r}
	if err := errorAlertTemplate.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render error alert: %w", err)
	}
	return buf.String(), nil
}

// ErrorAlertText returns the plain-text body for an error alert email.
func ErrorAlertText(r *report.Report, brand string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Error Notification\n\n", brandOrDefault(brand))
	b.WriteString(r.Summary())
	b.WriteString("\n")
	if r.HasContext() {
		fmt.Fprintf(&b, "\nContext: %s\n", r.Context)
	}
	fmt.Fprintf(&b, "\nStack Trace:\n%s\n", strings.TrimRight(r.StackTrace, "\n"))
	fmt.Fprintf(&b, "\n- %s Error Monitoring (report %s)", brandOrDefault(brand), r.ID)
	return b.String()
}

func brandOrDefault(brand string) string {
	if strings.TrimSpace(brand) == "" {
		return DefaultBrand
	}
	return brand
}
