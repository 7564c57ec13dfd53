package editor

import (
	"testing"

	"mockup/internal/models"
)

func TestDeriveSteps(t *testing.T) {
	tests := []struct {
		name string
		st   WorkflowState
		want Steps
	}{
		{
			name: "nothing yet",
			st:   WorkflowState{},
			want: Steps{Placed: true},
		},
		{
			name: "csv uploaded",
			st:   WorkflowState{CSVPresent: true, Headers: []string{"a"}},
			want: Steps{Uploaded: true, Placed: true},
		},
		{
			name: "mapped needs headers and mappings",
			st:   WorkflowState{CSVPresent: true, Headers: []string{"a"}, MappingCount: 2},
			want: Steps{Uploaded: true, Mapped: true, Placed: true},
		},
		{
			name: "mapping without headers is not mapped",
			st:   WorkflowState{MappingCount: 2},
			want: Steps{Placed: true},
		},
		{
			name: "previewed",
			st:   WorkflowState{PreviewCount: 3},
			want: Steps{Placed: true, Previewed: true},
		},
		{
			name: "running job is not run",
			st:   WorkflowState{JobStatus: models.JobRunning},
			want: Steps{Placed: true},
		},
		{
			name: "done job is run",
			st:   WorkflowState{JobStatus: models.JobDone},
			want: Steps{Placed: true, Run: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveSteps(tc.st); got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestMappingPrune(t *testing.T) {
	m := NewMappingStore()
	m.Set("var_1", "company")
	m.Set("var_2", "city")
	m.Set("var_3", "notes")

	m.Prune(map[string]struct{}{"var_1": {}, "var_3": {}})

	if _, ok := m.Get("var_2"); ok {
		t.Error("pruned entry survived")
	}
	if m.Len() != 2 {
		t.Errorf("len = %d, want 2", m.Len())
	}
}

func TestMappingSetEmptyColumnRemoves(t *testing.T) {
	m := NewMappingStore()
	m.Set("var_1", "company")
	m.Set("var_1", "")
	if m.Len() != 0 {
		t.Error("empty column should remove the entry")
	}
}
