package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Well-known instruction template names in the prompt library.
const (
	PromptMarkdownInstruction = "markdown_instruction"
	PromptTaskAnalysis        = "agent_task_analysis_and_decomposition"
	PromptGenerator           = "claude_prompt_generator"
)

// InstructionTemplate is a single named instruction text in the prompt library.
type InstructionTemplate struct {
	Description string `yaml:"description"`
}

// PromptLibrary maps template names to instruction templates, loaded from the
// prompts YAML file shipped with the service.
type PromptLibrary map[string]InstructionTemplate

// LoadPrompts loads the instruction-template library from a YAML file.
func LoadPrompts(path string) (PromptLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts file %s: %w", path, err)
	}

	var library PromptLibrary
	if err := yaml.Unmarshal(data, &library); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	return library, nil
}

// Instruction returns the instruction text for the named template.
func (l PromptLibrary) Instruction(name string) (string, bool) {
	tmpl, ok := l[name]
	if !ok {
		return "", false
	}
	return tmpl.Description, true
}
