package course

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// PromptPair is a system prompt plus the default user prompt template.
type PromptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Catalogue is the embedded set of default prompts.
type Catalogue struct {
	Outline PromptPair `yaml:"outline"`
	Content PromptPair `yaml:"content"`
	QnA     struct {
		Template string `yaml:"template"`
	} `yaml:"qna"`
}

var (
	catOnce sync.Once
	cat     *Catalogue
	catErr  error
)

// Prompts returns the embedded catalogue, parsed once.
func Prompts() (*Catalogue, error) {
	catOnce.Do(func() {
		cat, catErr = ParseCatalogue(promptsYAML)
	})
	return cat, catErr
}

func ParseCatalogue(b []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}
	if c.Outline.System == "" || c.Outline.User == "" || c.Content.System == "" || c.Content.User == "" {
		return nil, fmt.Errorf("prompt catalogue: outline and content prompts are required")
	}
	return &c, nil
}

// Render substitutes {name} placeholders from vars. "{{" and "}}" yield
// literal braces. A placeholder missing from vars is an error.
func Render(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("template: unclosed '{' at offset %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			v, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("template: unknown placeholder {%s}", name)
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				i++
			}
			b.WriteByte('}')
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// Prompt is a rendered system and user prompt ready for the model.
type Prompt struct {
	System string
	User   string
}

// OutlinePrompt renders the outline prompts. syllabus is the text pulled
// from the referenced PDFs.
func OutlinePrompt(c *Catalogue, r *OutlineRequest, syllabus string) (Prompt, error) {
	vars := map[string]string{
		"course_title":    r.CourseTitle,
		"course_duration": r.CourseDuration.String(),
		"syllabus_text":   syllabus,
	}
	return renderPair(c.Outline, r.UserPrompt, vars)
}

// ContentPrompt renders the weekly content prompts. additional is the text
// pulled from the referenced PDFs.
func ContentPrompt(c *Catalogue, r *ContentRequest, additional string) (Prompt, error) {
	vars := map[string]string{
		"course_title":              r.CourseTitle,
		"week_number":               r.WeekNumber.String(),
		"main_learning_outcome":     r.MainLearningOutcome,
		"sub_learning_outcome_list": BulletList(r.SubLearningOutcomeList),
		"additional_context":        additional,
	}
	return renderPair(c.Content, r.UserPrompt, vars)
}

func renderPair(p PromptPair, userPrompt string, vars map[string]string) (Prompt, error) {
	sys, err := Render(p.System, vars)
	if err != nil {
		return Prompt{}, fmt.Errorf("system prompt: %w", err)
	}
	tmpl := userPrompt
	if strings.TrimSpace(tmpl) == "" {
		tmpl = p.User
	}
	user, err := Render(tmpl, vars)
	if err != nil {
		return Prompt{}, fmt.Errorf("user prompt: %w", err)
	}
	return Prompt{System: sys, User: user}, nil
}

// BulletList renders items as "- item" lines.
func BulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}
