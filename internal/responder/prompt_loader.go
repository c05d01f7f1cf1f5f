package responder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"pv-reviews/internal/domain"
)

// PromptFile is the template name looked up under each prompt directory.
const PromptFile = "reply.md"

// PromptLoader loads reply prompts from the filesystem
type PromptLoader struct {
	baseDir string
}

// NewPromptLoader creates a new prompt loader
func NewPromptLoader(baseDir string) *PromptLoader {
	return &PromptLoader{baseDir: baseDir}
}

// PromptData is available to prompt templates
type PromptData struct {
	BusinessName string
	Sentiments   []string
	IssueTags    []string
}

// NewPromptData fills the closed category sets.
func NewPromptData(businessName string) PromptData {
	return PromptData{
		BusinessName: businessName,
		Sentiments:   domain.Sentiments(),
		IssueTags:    domain.IssueTags(),
	}
}

// Load renders the prompt for a listing. Lookup order is
// <dir>/<listing>/reply.md, <dir>/default/reply.md, then the built-in prompt.
func (l *PromptLoader) Load(listing string, data PromptData) (string, error) {
	var candidates []string
	if l.baseDir != "" {
		if listing != "" {
			candidates = append(candidates, filepath.Join(l.baseDir, listing, PromptFile))
		}
		candidates = append(candidates, filepath.Join(l.baseDir, "default", PromptFile))
	}

	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err == nil {
			return render(path, string(content), data)
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read prompt %s: %w", path, err)
		}
	}
	return render("builtin", builtinPrompt, data)
}

func render(name, content string, data PromptData) (string, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return sb.String(), nil
}

const builtinPrompt = `You are the owner of {{.BusinessName}}, replying to guest reviews on the business profile.

For each review:
1. Write a warm, personal reply. Start with "Dear <reviewer name>,". Keep it brief: 20-50 words for 4-5 star reviews, under 100 words otherwise. Reference specifics from the review. For negative feedback, acknowledge sincerely and offer a polite assurance. End by inviting them to visit again and sign off with "Regards".
2. Classify the sentiment as exactly one of: {{join .Sentiments ", "}}.
3. List the issues mentioned, choosing from: {{join .IssueTags ", "}}. Use "None" when there are none.

Return only a JSON object wrapped in a json code fence:
{"response_text": "...", "sentiment": "...", "issues": "comma-separated tags"}
`
