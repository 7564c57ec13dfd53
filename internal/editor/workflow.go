package editor

import "mockup/internal/models"

// WorkflowState is the raw state the tracker derives from.
type WorkflowState struct {
	CSVPresent   bool
	Headers      []string
	MappingCount int
	PreviewCount int
	JobStatus    models.JobStatus
}

// Steps are the derived completion flags. They only drive progress
// affordances and scroll targets; nothing gates navigation on them.
type Steps struct {
	Uploaded  bool
	Mapped    bool
	Placed    bool
	Previewed bool
	Run       bool
}

// DeriveSteps computes the step flags. Pure derivation, no state.
func DeriveSteps(st WorkflowState) Steps {
	return Steps{
		Uploaded:  st.CSVPresent,
		Mapped:    len(st.Headers) > 0 && st.MappingCount > 0,
		Placed:    true, // placement is always reachable
		Previewed: st.PreviewCount > 0,
		Run:       st.JobStatus == models.JobDone,
	}
}
