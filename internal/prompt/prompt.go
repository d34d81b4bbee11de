// Package prompt builds the prompts sent to LLM providers. System
// prompts pin the output to a strict JSON schema so responses can be
// machine-extracted; user prompts carry project context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/kiln/internal/domain"
)

// Builder constructs prompts for generation and chat requests
type Builder struct{}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AppSystemPrompt instructs the model to produce a complete project as JSON
func (b *Builder) AppSystemPrompt() string {
	return `You are a code generator for a learning workspace called Kiln.
Given an app idea, you produce a small but complete web application and a set
of coding challenges derived from it.

You must output ONLY a JSON object with these exact fields:
- projectName: short name for the project
- description: one-paragraph description
- files: array of { path: string, content: string } (complete file contents)
- challenges: array of:
  - title: string
  - description: what the learner must do
  - difficulty: "beginner" | "intermediate" | "advanced"
  - type: "implementation" | "bugfix" | "feature"
  - filePaths: array of file paths the challenge touches
  - hints: array of 2-4 hints, ordered from vague to specific

RULES:
1. Every challenge filePath must exist in files
2. Keep files small and readable; this is teaching material
3. Output ONLY the JSON object, no markdown, no explanation`
}

// AppPrompt builds the user prompt for app generation
func (b *Builder) AppPrompt(idea string) string {
	var sb strings.Builder
	sb.WriteString("## App Idea\n\n")
	sb.WriteString(idea)
	sb.WriteString("\n\nGenerate the project now.")
	return sb.String()
}

// ChallengeSystemPrompt instructs the model to produce a single challenge
func (b *Builder) ChallengeSystemPrompt() string {
	return `You are a coding-challenge author for a learning workspace called Kiln.
Given a project and a topic, you produce one focused coding challenge.

You must output ONLY a JSON object with these exact fields:
- title: string
- description: what the learner must do and why it matters
- difficulty: "beginner" | "intermediate" | "advanced"
- type: "implementation" | "bugfix" | "feature"
- filePaths: array of existing project file paths the challenge touches
- hints: array of 2-4 hints, ordered from vague to specific

RULES:
1. Reference only files that exist in the project
2. The challenge must be completable without external services
3. Output ONLY the JSON object, no markdown, no explanation`
}

// ChallengePrompt builds the user prompt for single-challenge generation
func (b *Builder) ChallengePrompt(project *domain.Project, topic string, difficulty domain.Difficulty) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Project: %s\n\n%s\n\n", project.Name, project.Description))
	writeFiles(&sb, project.Files)

	sb.WriteString(fmt.Sprintf("## Request\n\nTopic: %s\nDifficulty: %s\n", topic, difficulty))
	sb.WriteString("\nGenerate one challenge now.")

	return sb.String()
}

// ModifySystemPrompt instructs the model to rewrite project files
func (b *Builder) ModifySystemPrompt() string {
	return `You are a code modifier for a learning workspace called Kiln.
Given a project and a change instruction, you rewrite the affected files.

You must output ONLY a JSON object with these exact fields:
- files: array of { path: string, content: string } containing ONLY the files
  you changed or added, each with its complete new content
- summary: one-sentence description of the change

RULES:
1. Return complete file contents, never diffs or fragments
2. Do not touch files unrelated to the instruction
3. Output ONLY the JSON object, no markdown, no explanation`
}

// ModifyPrompt builds the user prompt for app modification
func (b *Builder) ModifyPrompt(project *domain.Project, instruction string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Project: %s\n\n", project.Name))
	writeFiles(&sb, project.Files)

	sb.WriteString("## Instruction\n\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nApply the change now.")

	return sb.String()
}

// AnalyzeSystemPrompt instructs the model to review code
func (b *Builder) AnalyzeSystemPrompt() string {
	return `You are a code reviewer for a learning workspace called Kiln.
You review learner code for bugs, style problems and missed edge cases.
Be encouraging; the reader is learning.

You must output ONLY a JSON object with these exact fields:
- summary: 1-2 sentence overall assessment
- issues: array of { path: string, line: number (0 when unknown),
  severity: "info" | "warning" | "error", message: string }
- suggestions: array of short actionable improvement suggestions

Output ONLY the JSON object, no markdown, no explanation.`
}

// AnalyzePrompt builds the user prompt for code analysis
func (b *Builder) AnalyzePrompt(files []domain.ProjectFile) string {
	var sb strings.Builder
	sb.WriteString("## Code To Review\n\n")
	writeFiles(&sb, files)
	sb.WriteString("Review the code now.")
	return sb.String()
}

// ChatSystemPrompt is the system prompt for free-form chat
func (b *Builder) ChatSystemPrompt(project *domain.Project) string {
	var sb strings.Builder

	sb.WriteString(`You are a friendly programming mentor inside Kiln, a coding
challenge workspace. Answer questions about the learner's project, explain
concepts, and encourage progress. Do not write complete solutions to open
challenges; nudge instead.`)

	if project != nil {
		sb.WriteString(fmt.Sprintf("\n\nCurrent project: %s. %s\n", project.Name, project.Description))
		sb.WriteString(fmt.Sprintf("Progress: %s\n", project.Overview()))
		if active := project.ActiveChallenge(); active != nil {
			sb.WriteString(fmt.Sprintf("Active challenge: %s (%s)\n", active.Title, active.Difficulty))
		}
	}

	return sb.String()
}

func writeFiles(sb *strings.Builder, files []domain.ProjectFile) {
	if len(files) == 0 {
		return
	}
	sb.WriteString("## Files\n\n")
	for _, f := range files {
		sb.WriteString(fmt.Sprintf("### %s\n```\n%s\n```\n\n", f.Path, f.Content))
	}
}
