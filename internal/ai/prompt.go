package ai

import (
	"strings"

	"github.com/starford/noteflow/internal/models"
)

const systemPrompt = "You are a writing assistant inside a markdown note-taking app. " +
	"Answer with markdown only, without preamble or closing remarks."

const (
	summarizeInstruction = "Summarize the following markdown note. Keep the key points, drop filler, and keep the language of the note."
	structureInstruction = "Restructure the following markdown note into a clear document with headings, lists and short paragraphs. Do not add facts that are not in the note."
	tryAgainInstruction  = "The previous attempt is shown below. Produce a noticeably different version."
)

// BuildPrompt assembles the instruction, the mode, the note content and,
// for sandbox or retry requests, the previous sandbox content.
func BuildPrompt(mode models.GenerationMode, content, sandbox string, tryAgain bool) string {
	var b strings.Builder
	if mode.Summarizes() {
		b.WriteString(summarizeInstruction)
	} else {
		b.WriteString(structureInstruction)
	}
	b.WriteString("\n\nMode: ")
	b.WriteString(string(mode))
	b.WriteString("\n\nNote:\n")
	b.WriteString(content)

	if (mode.TargetsSandbox() || tryAgain) && sandbox != "" {
		if tryAgain {
			b.WriteString("\n\n")
			b.WriteString(tryAgainInstruction)
		}
		b.WriteString("\n\nPrevious version:\n")
		b.WriteString(sandbox)
	}
	return b.String()
}
