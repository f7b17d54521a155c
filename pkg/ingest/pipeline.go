// ABOUTME: Standard phase layout for the depot ingest pipeline
// ABOUTME: Characterization, graph construction, then validation

package ingest

// DefaultPhases returns the standard pipeline: fixity and format
// characterization first, graph construction second, validation last.
// When pauseAfterValidation is set, deposits pause after the validation
// phase and wait for an explicit resume.
func DefaultPhases(pauseAfterValidation bool) []Phase {
	return []Phase{
		{
			Number: 1,
			Stages: []Stage{NewFixityStage(), NewFormatVerifyStage()},
		},
		{
			Number: 2,
			Stages: []Stage{NewGraphBuilder()},
		},
		{
			Number:     3,
			PauseAfter: pauseAfterValidation,
			Stages: []Stage{
				NewRefIntegrityCheck(),
				NewCardinalityCheck(),
				NewUniqueIDCheck(),
			},
		},
	}
}
