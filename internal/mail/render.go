package mail

import (
	"embed"
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// Template names
const (
	TemplateApplication = "application"
	TemplateMaxCapacity = "max_capacity"
)

type compiled struct {
	subject *liquid.Template
	body    *liquid.Template
}

// Renderer renders the embedded Liquid templates. All templates are parsed
// up front so a broken template fails at startup.
type Renderer struct {
	baseURL   string
	templates map[string]compiled
}

func NewRenderer(baseURL string) (*Renderer, error) {
	engine := liquid.NewEngine()
	r := &Renderer{baseURL: strings.TrimRight(baseURL, "/"), templates: map[string]compiled{}}

	for _, name := range []string{TemplateApplication, TemplateMaxCapacity} {
		subject, err := parse(engine, name+".subject.liquid")
		if err != nil {
			return nil, err
		}
		body, err := parse(engine, name+".body.liquid")
		if err != nil {
			return nil, err
		}
		r.templates[name] = compiled{subject: subject, body: body}
	}

	return r, nil
}

func parse(engine *liquid.Engine, file string) (*liquid.Template, error) {
	src, err := templateFS.ReadFile("templates/" + file)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", file, err)
	}
	tpl, perr := engine.ParseString(string(src))
	if perr != nil {
		return nil, fmt.Errorf("parse template %s: %w", file, perr)
	}
	return tpl, nil
}

// Render returns the subject and body of template name. base_url is always
// bound.
func (r *Renderer) Render(name string, bindings map[string]any) (string, string, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}

	b := make(map[string]any, len(bindings)+1)
	for k, v := range bindings {
		b[k] = v
	}
	b["base_url"] = r.baseURL

	subject, err := tpl.subject.RenderString(b)
	if err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	body, err := tpl.body.RenderString(b)
	if err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}

	return strings.TrimSpace(subject), body, nil
}
