package logic

import "github.com/patrickwarner/adselect/internal/models"

// TraceStep records the surviving candidates at one selection stage.
type TraceStep struct {
	Stage               string            `json:"stage"`
	CreativeInstanceIDs []string          `json:"creative_instance_ids"`
	CreativeSetIDs      []string          `json:"creative_set_ids"`
	Details             map[string]string `json:"details,omitempty"`
}

// SelectionTrace captures the ordered list of steps performed by a selector.
type SelectionTrace struct {
	Steps []TraceStep `json:"steps"`
}

// AddStep appends a trace entry for the given stage using the supplied ads.
// Duplicate creative set IDs are removed.
func AddStep[T models.CreativeAdVariant](t *SelectionTrace, stage string, ads []T) {
	if t == nil {
		return
	}
	step := TraceStep{Stage: stage}
	seen := make(map[string]struct{})
	for _, ad := range ads {
		creative := ad.Creative()
		step.CreativeInstanceIDs = append(step.CreativeInstanceIDs, creative.CreativeInstanceID)
		if _, ok := seen[creative.CreativeSetID]; !ok {
			seen[creative.CreativeSetID] = struct{}{}
			step.CreativeSetIDs = append(step.CreativeSetIDs, creative.CreativeSetID)
		}
	}
	t.Steps = append(t.Steps, step)
}

// AddStepWithDetails appends a trace entry with additional details about filtering.
func AddStepWithDetails[T models.CreativeAdVariant](t *SelectionTrace, stage string, ads []T, details map[string]string) {
	if t == nil {
		return
	}
	AddStep(t, stage, ads)
	t.Steps[len(t.Steps)-1].Details = details
}
