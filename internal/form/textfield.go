// Package form renders the labeled input used by the HTML pages.
package form

import (
	"bytes"
	"html/template"
	"io"
)

// TextField is a labeled text input with an optional error line. It holds
// no state and performs no validation.
type TextField struct {
	Label       string
	Name        string
	Value       string
	Placeholder string
	Error       string
}

var textFieldTmpl = template.Must(template.New("textfield").Parse(
	`<div style="margin-bottom: 0.5rem">` +
		`<label style="display: block; font-weight: bold"{{if .Name}} for="{{.Name}}"{{end}}>{{.Label}}</label>` +
		`<input{{if .Name}} id="{{.Name}}" name="{{.Name}}"{{end}} value="{{.Value}}" placeholder="{{.Placeholder}}"` +
		` style="border-color: {{if .Error}}red{{else}}#ccc{{end}}">` +
		`{{if .Error}}<p style="color: red; margin: 0; font-size: 0.8rem">{{.Error}}</p>{{end}}` +
		`</div>`))

func (f TextField) Render(w io.Writer) error {
	return textFieldTmpl.Execute(w, f)
}

// HTML renders the field for embedding into another template.
func (f TextField) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
