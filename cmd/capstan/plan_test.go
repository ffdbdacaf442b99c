package main

import (
	"reflect"
	"testing"

	"github.com/capstanhq/capstan/internal/types"
)

func TestParseDepends(t *testing.T) {
	tests := []struct {
		spec     string
		wantIdx  int
		wantDeps []int
		wantErr  bool
	}{
		{spec: "3:1,2", wantIdx: 3, wantDeps: []int{1, 2}},
		{spec: "2:1", wantIdx: 2, wantDeps: []int{1}},
		{spec: " 4 : 1 , 3 ", wantIdx: 4, wantDeps: []int{1, 3}},
		{spec: "3", wantErr: true},
		{spec: "x:1", wantErr: true},
		{spec: "3:one", wantErr: true},
	}

	for _, tt := range tests {
		idx, deps, err := parseDepends(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDepends(%q): expected error, got idx=%d deps=%v", tt.spec, idx, deps)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDepends(%q): unexpected error: %v", tt.spec, err)
			continue
		}
		if idx != tt.wantIdx {
			t.Errorf("parseDepends(%q): idx = %d, want %d", tt.spec, idx, tt.wantIdx)
		}
		if !reflect.DeepEqual(deps, tt.wantDeps) {
			t.Errorf("parseDepends(%q): deps = %v, want %v", tt.spec, deps, tt.wantDeps)
		}
	}
}

func TestPriorIterations(t *testing.T) {
	plans := []*types.Plan{
		{ID: "cap-2", Iteration: 1},
		{ID: "cap-3", Iteration: 2},
		{ID: "cap-4", Iteration: 3},
	}

	// Validating the newest plan counts only the two earlier attempts.
	prior := priorIterations(plans, "cap-4")
	if len(prior) != 2 {
		t.Fatalf("expected 2 prior iterations, got %d", len(prior))
	}
	for _, p := range prior {
		if p.ID == "cap-4" {
			t.Error("plan under validation should be excluded")
		}
	}

	if got := priorIterations(plans, "cap-99"); len(got) != 3 {
		t.Errorf("unrelated plan ID should keep all %d plans, got %d", len(plans), len(got))
	}
	if got := priorIterations(nil, "cap-1"); got != nil {
		t.Errorf("expected nil for no plans, got %v", got)
	}
}
