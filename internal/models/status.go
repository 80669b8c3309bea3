package models

// AIStatus is the process-wide state of AI generation.
type AIStatus string

const (
	AIIdle       AIStatus = "idle"
	AIGenerating AIStatus = "generating"
	AIFinished   AIStatus = "finished"
	AIError      AIStatus = "error"
)

// SaveStatus tracks the debounced persistence of a note's live content.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

// GenerationMode selects the prompt and the destination of an AI result.
type GenerationMode string

const (
	ModeSummarizeReplace      GenerationMode = "summarize-replace"
	ModeSummarizeSandbox      GenerationMode = "summarize-sandbox"
	ModeSummarizeInsertStart  GenerationMode = "summarize-insert-start"
	ModeSummarizeInsertBottom GenerationMode = "summarize-insert-bottom"
	ModeStructureReplace      GenerationMode = "structure-replace"
	ModeStructureSandbox      GenerationMode = "structure-sandbox"
)

// GenerationModes lists every valid mode.
var GenerationModes = []GenerationMode{
	ModeSummarizeReplace,
	ModeSummarizeSandbox,
	ModeSummarizeInsertStart,
	ModeSummarizeInsertBottom,
	ModeStructureReplace,
	ModeStructureSandbox,
}

// TargetsSandbox reports whether results of m go to the sandbox history.
func (m GenerationMode) TargetsSandbox() bool {
	return m == ModeSummarizeSandbox || m == ModeStructureSandbox
}

// Summarizes reports whether m asks for a summary rather than a restructure.
func (m GenerationMode) Summarizes() bool {
	switch m {
	case ModeSummarizeReplace, ModeSummarizeSandbox, ModeSummarizeInsertStart, ModeSummarizeInsertBottom:
		return true
	}
	return false
}

// Valid reports whether m is a known mode.
func (m GenerationMode) Valid() bool {
	for _, v := range GenerationModes {
		if m == v {
			return true
		}
	}
	return false
}

// SortMode selects how the note list is ordered or filtered.
type SortMode string

const (
	SortByDate  SortMode = "date"
	SortByTitle SortMode = "title"
	SortByTags  SortMode = "tags"
)

// SortOptions configures the derived note view.
type SortOptions struct {
	Mode         SortMode `json:"mode"`
	Descending   bool     `json:"descending"`
	SelectedTags []string `json:"selectedTags,omitempty"`
}
