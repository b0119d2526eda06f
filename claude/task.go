package claude

import (
	"github.com/randalmurphal/llmkit/model"
)

// Task represents the kind of writing work being requested.
// This determines which model tier is appropriate.
type Task string

const (
	// Outlining benefits from reasoning over the research corpus.
	TaskOutline Task = "outline"

	// Drafting is the standard long-form writing task.
	TaskDraft Task = "draft"

	// Summarization and title generation can use smaller models.
	TaskSummarize Task = "summarize"
	TaskTitle     Task = "title"
)

// DefaultModelMap maps writing tasks to default models.
var DefaultModelMap = map[Task]model.ModelName{
	TaskOutline:   model.ModelOpus,
	TaskDraft:     model.ModelSonnet,
	TaskSummarize: model.ModelHaiku,
	TaskTitle:     model.ModelHaiku,
}

// TierForTask returns the appropriate tier for a writing task.
func TierForTask(t Task) model.Tier {
	switch t {
	case TaskOutline:
		return model.TierThinking
	case TaskSummarize, TaskTitle:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for writing tasks.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Task); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the appropriate model for a writing task.
func SelectModel(t Task) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	switch TierForTask(t) {
	case model.TierThinking:
		return model.ModelOpus
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}

// apiModelIDs maps model names to Messages API model identifiers.
var apiModelIDs = map[model.ModelName]string{
	model.ModelOpus:   "claude-opus-4-0",
	model.ModelSonnet: "claude-sonnet-4-0",
	model.ModelHaiku:  "claude-3-5-haiku-latest",
}

// apiModelID resolves a model name to its API identifier.
func apiModelID(name model.ModelName) string {
	if id, ok := apiModelIDs[name]; ok {
		return id
	}
	return string(name)
}
