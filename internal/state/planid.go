package state

import (
	"strings"
	"time"
	"unicode"

	"github.com/mohammad-safakhou/copilot/models"
)

const namePrefixMax = 20

// GeneratePlanID derives a plan ID from the business name plus a timestamp,
// or a pure timestamp ID when no name has been captured yet.
func GeneratePlanID(plan models.BusinessPlan) string {
	name := plan.StringField("business_name")
	if name == "" {
		return time.Now().Format("plan_20060102_150405")
	}

	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	clean := strings.Join(strings.Fields(b.String()), "_")
	// Truncate by runes so multibyte names keep valid UTF-8 at the cut.
	if runes := []rune(clean); len(runes) > namePrefixMax {
		clean = string(runes[:namePrefixMax])
	}
	return clean + "_" + time.Now().Format("0102_1504")
}

// InferStage determines how far a plan has progressed from the keys it has
// accumulated, checking late-stage indicators first.
func InferStage(plan models.BusinessPlan) models.Stage {
	has := func(keys ...string) bool {
		for _, k := range keys {
			if v, ok := plan[k]; ok && v != nil && v != "" && v != false {
				return true
			}
		}
		return false
	}

	switch {
	case has("launch_timeline", "launch_checklist", "has_launch_plan"):
		return models.StageLaunch
	case has("financial_projections", "estimated_startup_cost", "has_financial_projections"):
		return models.StageCosting
	case has("business_model", "marketing_strategy", "operations_plan", "has_business_plan"):
		return models.StagePlanning
	case has("market_data", "has_market_research"):
		return models.StageResearch
	default:
		return models.StageIdea
	}
}
