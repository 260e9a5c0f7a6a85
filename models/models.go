package models

import "time"

// Stage is one step of the five-step business planning funnel.
type Stage string

const (
	StageIdea     Stage = "idea"
	StageResearch Stage = "research"
	StagePlanning Stage = "planning"
	StageCosting  Stage = "costing"
	StageLaunch   Stage = "launch"
)

// Stages is the funnel in order. Progression is monotonic: a session never
// regresses and never skips a stage.
var Stages = []Stage{StageIdea, StageResearch, StagePlanning, StageCosting, StageLaunch}

// Valid reports whether s is one of the five known stages.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Index returns the position of s in the funnel, or -1 when unknown.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the following stage, or s itself when s is terminal or
// unknown.
func (s Stage) Next() Stage {
	i := s.Index()
	if i < 0 || i >= len(Stages)-1 {
		return s
	}
	return Stages[i+1]
}

// Terminal reports whether s is the last funnel stage.
func (s Stage) Terminal() bool {
	return s == StageLaunch
}

// ChatMessage is a single turn in the conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// BusinessPlan is the open-ended accumulated mapping of business facts. Keys
// are merged incrementally; there is deliberately no schema enforcement.
type BusinessPlan map[string]interface{}

// Merge applies updates onto the plan, overwriting existing keys.
func (p BusinessPlan) Merge(updates map[string]interface{}) {
	for k, v := range updates {
		p[k] = v
	}
}

// StringField returns the plan value for key when it is a string.
func (p BusinessPlan) StringField(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// SearchResult is one ranked search hit. RelevanceScore is overwritten by
// whichever ranking step runs last.
type SearchResult struct {
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevance_score"`
}

// ExecutionLogEntry records one orchestrator invocation for tracing.
type ExecutionLogEntry struct {
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Task      string    `json:"task"`
	Stage     Stage     `json:"stage"`
}
