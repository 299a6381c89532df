package llm

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/raphaelgruber/scout/internal/parser"
)

//go:embed prompts/*.md
var promptFS embed.FS

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

// Prompt is a two-part chat prompt loaded from an embedded Markdown file
// with "System" and "User" sections.
type Prompt struct {
	Name        string
	Description string
	system      *template.Template
	user        *template.Template
}

var (
	promptMu    sync.Mutex
	promptCache = map[string]*Prompt{}
)

// LoadPrompt returns the named embedded prompt, parsing it on first use.
func LoadPrompt(name string) (*Prompt, error) {
	promptMu.Lock()
	defer promptMu.Unlock()

	if p, ok := promptCache[name]; ok {
		return p, nil
	}

	raw, err := promptFS.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	p, err := parsePrompt(name, string(raw))
	if err != nil {
		return nil, err
	}
	promptCache[name] = p
	return p, nil
}

func parsePrompt(name, content string) (*Prompt, error) {
	doc, err := parser.ParseMarkdown(content)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}

	systemText, ok := doc.Section("System")
	if !ok {
		return nil, fmt.Errorf("prompt %s: missing System section", name)
	}
	userText, ok := doc.Section("User")
	if !ok {
		return nil, fmt.Errorf("prompt %s: missing User section", name)
	}

	system, err := template.New(name + ".system").Funcs(promptFuncs).Parse(systemText)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: system template: %w", name, err)
	}
	user, err := template.New(name + ".user").Funcs(promptFuncs).Parse(userText)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: user template: %w", name, err)
	}

	return &Prompt{
		Name:        doc.Title,
		Description: doc.GetFrontmatterString("description"),
		system:      system,
		user:        user,
	}, nil
}

// Render executes both sections against data.
func (p *Prompt) Render(data any) (system, user string, err error) {
	var sb, ub bytes.Buffer
	if err := p.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s system: %w", p.Name, err)
	}
	if err := p.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("render %s user: %w", p.Name, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}
