package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"case_relay_go/models"
)

var caseReportTemplate = template.Must(template.New("case_report").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
	"deref": derefString,
	"yesno": yesNo,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 11pt; color: #111; }
  h1 { font-size: 16pt; margin-bottom: 4pt; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 12pt; }
  th, td { text-align: left; padding: 4pt; border-bottom: 1px solid #ddd; vertical-align: top; }
  .system { color: #555; font-style: italic; }
</style>
</head>
<body>
<h1>Case {{.CaseNumber}}</h1>
<p><strong>{{.Title}}</strong></p>
<table>
  <tr><th>Status</th><td>{{.Status}}</td><th>Severity</th><td>{{.Severity}}</td></tr>
  <tr><th>Category</th><td>{{deref .Category}}</td><th>Approved</th><td>{{yesno .IsApproved}}</td></tr>
  <tr><th>Assigned officer</th><td>{{.AssignedOfficerID}}</td><th>Previous officer</th><td>{{deref .PreviousOfficerID}}</td></tr>
  <tr><th>Reported</th><td>{{date .ReportedAt}}</td><th>Resolved</th><td>{{if .ResolvedAt}}{{date .ResolvedAt}}{{end}}</td></tr>
</table>
<h2>Description</h2>
<p>{{.Description}}</p>
<h2>Comments</h2>
{{if .Comments}}<table>
  {{range .Comments}}<tr{{if .IsSystem}} class="system"{{end}}><td>{{date .CreatedAt}}</td><td>{{.AuthorID}}</td><td>{{.CommentText}}</td></tr>
  {{end}}
</table>{{else}}<p>No comments.</p>{{end}}
<h2>Documents</h2>
{{if .Documents}}<table>
  {{range .Documents}}<tr><td>{{.FileName}}</td><td>{{.UploadedBy}}</td><td>{{date .UploadedAt}}</td></tr>
  {{end}}
</table>{{else}}<p>No documents.</p>{{end}}
</body>
</html>`))

// RenderCaseReportHTML renders the case aggregate as a printable page
func RenderCaseReportHTML(c *models.Case) (string, error) {
	var buf bytes.Buffer
	if err := caseReportTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("failed to render case report: %w", err)
	}
	return buf.String(), nil
}

// GenerateCaseReportPDF renders the case aggregate to a PDF
func GenerateCaseReportPDF(ctx context.Context, c *models.Case) ([]byte, error) {
	html, err := RenderCaseReportHTML(c)
	if err != nil {
		return nil, err
	}
	return GeneratePDF(ctx, html, DefaultPDFOptions())
}
