package cli

import (
	"fmt"
	"io"
	"text/template"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	codeStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder())
)

var templateFuncs = template.FuncMap{
	"title": func(s string) string { return titleStyle.Render(s) },
	"ok":    func(s string) string { return okStyle.Render(s) },
	"warn":  func(s string) string { return warnStyle.Render(s) },
	"dim":   func(v any) string { return dimStyle.Render(fmt.Sprint(v)) },
	"inc":   func(i int) int { return i + 1 },
}

const listTemplate = `{{title "=== Accounts ==="}}
{{range $i, $a := .}}
{{if $a.Active}}{{ok "*"}}{{else}} {{end}} {{inc $i}}. {{$a.Name}}  {{dim $a.Kind}}  {{dim $a.ID}}
{{- if $a.Insecure}}  {{warn "[insecure]"}}{{end}}
{{- if $a.Password}}  {{dim "[password]"}}{{end}}
{{- end}}
`

const accountTemplate = `
{{title "=== Account ==="}}

Name:    {{.Name}}
ID:      {{.ID}}
Kind:    {{.Kind}}
{{- if .Cipher}}
Cipher:  {{.Cipher}}{{if .Insecure}} {{warn "(insecure)"}}{{end}}
{{- end}}
`

const statusTemplate = `{{title "=== Status ==="}}

Config:   {{.ConfigPath}}
Storage:  {{.Storage}} ({{.DBPath}})
Cipher:   {{.Cipher}}
Accounts: {{.Count}}
{{- if .Active}}
Active:   {{ok .Active.Name}} {{dim .Active.ID}}
{{- else}}
Active:   {{dim "none"}}
{{- end}}
`

var (
	listTmpl    = template.Must(template.New("list").Funcs(templateFuncs).Parse(listTemplate))
	accountTmpl = template.Must(template.New("account").Funcs(templateFuncs).Parse(accountTemplate))
	statusTmpl  = template.Must(template.New("status").Funcs(templateFuncs).Parse(statusTemplate))
)

func render(w io.Writer, tmpl *template.Template, data any) error {
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return nil
}
