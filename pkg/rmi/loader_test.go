package rmi

import (
	"strings"
	"testing"
)

const wellFormedArtifact = `
branch_factor: 2
stage1: { slope: 0.01, intercept: 0.0 }
stage2: [
  { slope: 0.5, intercept: 0, min_error: -2, max_error: 3 },
  { slope: 0.5, intercept: -50, min_error: -1, max_error: 1 },
]
`

func TestParseParamsWellFormed(t *testing.T) {
	p, err := ParseParams(strings.NewReader(wellFormedArtifact))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BranchFactor != 2 {
		t.Fatalf("expected branch_factor 2, got %d", p.BranchFactor)
	}
	if p.Stage1.Slope != 0.01 {
		t.Fatalf("expected stage1 slope 0.01, got %v", p.Stage1.Slope)
	}
	if len(p.Stage2) != 2 {
		t.Fatalf("expected 2 stage2 entries, got %d", len(p.Stage2))
	}
	if p.Stage2[1].Model.Intercept != -50 {
		t.Fatalf("expected second intercept -50, got %v", p.Stage2[1].Model.Intercept)
	}
	if p.Stage2[0].MaxError != 3 {
		t.Fatalf("expected first max_error 3, got %d", p.Stage2[0].MaxError)
	}
	if !p.Loaded() {
		t.Fatal("expected parsed params to report loaded")
	}
}

func TestParseParamsToleratesSingleLineLayout(t *testing.T) {
	compact := "branch_factor: 1\n" +
		"stage1: { slope: 1.0, intercept: 0 }\n" +
		"stage2: [{ slope: 1.0, intercept: 0, min_error: 0, max_error: 0 }]"
	p, err := ParseParams(strings.NewReader(compact))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BranchFactor != 1 || len(p.Stage2) != 1 {
		t.Fatalf("unexpected parse result: %+v", p)
	}
}

func TestParseParamsMissingBranchFactor(t *testing.T) {
	_, err := ParseParams(strings.NewReader("stage1: { slope: 1, intercept: 0 }"))
	if err == nil {
		t.Fatal("expected an error for a missing branch_factor field")
	}
}

func TestParseParamsStage2CountMismatch(t *testing.T) {
	bad := `
branch_factor: 2
stage1: { slope: 1, intercept: 0 }
stage2: [
  { slope: 1, intercept: 0, min_error: 0, max_error: 0 },
]
`
	_, err := ParseParams(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected an error when stage2 entry count disagrees with branch_factor")
	}
}

func TestParseParamsMalformedNumber(t *testing.T) {
	bad := `
branch_factor: not-a-number
stage1: { slope: 1, intercept: 0 }
`
	_, err := ParseParams(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected an error for a non-numeric branch_factor")
	}
}

func TestLoadParamsFileFromTestdata(t *testing.T) {
	p, err := LoadParamsFile("../../testdata/rmi_model.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BranchFactor != 4 {
		t.Fatalf("expected branch_factor 4, got %d", p.BranchFactor)
	}
	if len(p.Stage2) != 4 {
		t.Fatalf("expected 4 stage2 entries, got %d", len(p.Stage2))
	}
}

func TestLoadParamsFileMissingFileReturnsLoadError(t *testing.T) {
	_, err := LoadParamsFile("/nonexistent/path/to/model.txt")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var loadErr *LoadError
	if !errorsAs(err, &loadErr) {
		t.Fatalf("expected a *LoadError, got %T: %v", err, err)
	}
}

func TestIndexLoadModelFileResetsOnFailure(t *testing.T) {
	idx := New[uint64]()
	idx.Build([]uint64{1, 2, 3})
	idx.SetParams(Params{BranchFactor: 1, Stage2: []SubModel{{}}})

	if err := idx.LoadModelFile("/nonexistent/path/to/model.txt"); err == nil {
		t.Fatal("expected an error")
	}
	if idx.Loaded() {
		t.Fatal("expected index to revert to unloaded after a failed load")
	}
}

// errorsAs is a tiny indirection so the test file doesn't need a second
// import line purely for errors.As.
func errorsAs(err error, target **LoadError) bool {
	le, ok := err.(*LoadError)
	if !ok {
		return false
	}
	*target = le
	return true
}
