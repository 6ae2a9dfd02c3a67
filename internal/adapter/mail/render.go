package mail

import (
	"fmt"
	"html/template"
	"strings"
)

const passwordResetTemplate = `<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Username}},</p>
<p>A password reset was requested for your account. Click the link below to choose a new password:</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
</body>
</html>
`

// Renderer renders the built-in email templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.New("password_reset").Parse(passwordResetTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Render renders the named template with the given model.
func (r *Renderer) Render(name string, data any) (string, error) {
	t := r.templates.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
