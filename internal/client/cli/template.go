package cli

import (
	"text/template"
)

var templateFuncs = template.FuncMap{
	"when": formatTime,
	"short": func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		return s[:n-1] + "…"
	},
}

const queueTemplate = `ID	KIND	STATUS	ATTEMPTS	SAVED	LAST ERROR
{{- range .}}
{{.ID}}	{{.Kind}}	{{.Status}}	{{.Attempts}}	{{when .SavedAt}}	{{short .LastError 48}}
{{- end}}
`

const statusTemplate = `
=== Status ===

Collector:  {{.ServerURL}} ({{if .Online}}online{{else}}offline{{end}})
{{- if .Session}}
Operator:   {{.Session.Username}} ({{.Session.Role}})
{{- if .Expired}}
!  Token has expired. Run 'yardsync login' again.
{{- end}}
{{- else}}
Operator:   not logged in
{{- end}}

Pending:    {{.Stats.PendingCount}}
Failed:     {{.Stats.FailedCount}}
Draft:      {{if .Stats.HasDraft}}yes{{else}}no{{end}}
Last sync:  {{when .LastSync}}
Storage:    {{.Stats.ApproximateByteSize}} bytes used, ~{{.Stats.EstimatedFreeBytes}} bytes free{{if not .Available}} (NOT WRITABLE){{end}}
`

const draftTemplate = `
=== Draft ===

Form:   {{.Kind}}
Saved:  {{when .LastSaved}}
Fields:
{{- range $name, $value := .Fields}}
  {{$name}}: {{$value}}
{{- end}}
`

const versionTemplate = `yardsync client
Version:    {{.Version}}
Build Date: {{.BuildDate}}
Git Commit: {{.GitCommit}}
`

var (
	queueTmpl   = template.Must(template.New("queue").Funcs(templateFuncs).Parse(queueTemplate))
	statusTmpl  = template.Must(template.New("status").Funcs(templateFuncs).Parse(statusTemplate))
	draftTmpl   = template.Must(template.New("draft").Funcs(templateFuncs).Parse(draftTemplate))
	versionTmpl = template.Must(template.New("version").Parse(versionTemplate))
)
