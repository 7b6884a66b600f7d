package rmi

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// LoadError wraps any failure encountered while reading or parsing a model
// artifact. The RMI a failed load was attempted against is left unloaded
// (its Params revert to the zero value), never partially populated.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rmi: load model: %v", e.Err)
	}
	return fmt.Sprintf("rmi: load model %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	reBranchFactor = regexp.MustCompile(`branch_factor\s*:\s*(-?\d+)`)
	reNumberField  = regexp.MustCompile(`([A-Za-z_]+)\s*:\s*(-?[0-9]+(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?)`)
	reBraceBlock   = regexp.MustCompile(`\{([^{}]*)\}`)
)

// LoadParamsFile opens path and parses it as a model artifact. It is a thin
// wrapper around ParseParams that attaches the file path to any error.
func LoadParamsFile(path string) (Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return Params{}, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	p, err := ParseParams(f)
	if err != nil {
		return Params{}, &LoadError{Path: path, Err: err}
	}
	return p, nil
}

// ParseParams reads a model artifact and returns the parameters it
// describes. The format is deliberately tolerant: a line-oriented text
// layout with a branch_factor field, a stage1 block, and a stage2 block
// (an array of per-submodel records). Whitespace, line breaks within a
// block, and trailing commas are all accepted; the parser recognizes
// fields by name rather than by position.
//
//	branch_factor: 4
//	stage1: { slope: 0.015, intercept: 0.0 }
//	stage2: [
//	  { slope: 0.2, intercept: 10, min_error: -3, max_error: 4 },
//	  { slope: 0.18, intercept: -5, min_error: -2, max_error: 2 },
//	]
func ParseParams(r io.Reader) (Params, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Params{}, fmt.Errorf("reading artifact: %w", err)
	}
	content := string(raw)

	bfMatch := reBranchFactor.FindStringSubmatch(content)
	if bfMatch == nil {
		return Params{}, fmt.Errorf("missing branch_factor field")
	}
	branchFactor, err := strconv.Atoi(bfMatch[1])
	if err != nil || branchFactor < 0 {
		return Params{}, fmt.Errorf("invalid branch_factor %q", bfMatch[1])
	}

	idxStage1 := strings.Index(content, "stage1")
	if idxStage1 < 0 {
		return Params{}, fmt.Errorf("missing stage1 section")
	}
	idxStage2 := strings.Index(content, "stage2")

	var stage1Segment, stage2Segment string
	if idxStage2 > idxStage1 {
		stage1Segment = content[idxStage1:idxStage2]
		stage2Segment = content[idxStage2:]
	} else {
		stage1Segment = content[idxStage1:]
	}

	stage1, err := parseLinearModel(stage1Segment)
	if err != nil {
		return Params{}, fmt.Errorf("parsing stage1: %w", err)
	}

	if branchFactor == 0 {
		return Params{BranchFactor: 0, Stage1: stage1}, nil
	}
	if stage2Segment == "" {
		return Params{}, fmt.Errorf("missing stage2 section")
	}

	blocks := reBraceBlock.FindAllStringSubmatch(stage2Segment, -1)
	if len(blocks) != branchFactor {
		return Params{}, fmt.Errorf("stage2 has %d entries, branch_factor declares %d", len(blocks), branchFactor)
	}

	stage2 := make([]SubModel, 0, branchFactor)
	for i, b := range blocks {
		sm, err := parseSubModel(b[1])
		if err != nil {
			return Params{}, fmt.Errorf("parsing stage2 entry %d: %w", i, err)
		}
		stage2 = append(stage2, sm)
	}

	return Params{
		BranchFactor: branchFactor,
		Stage1:       stage1,
		Stage2:       stage2,
	}, nil
}

func fields(segment string) map[string]string {
	out := make(map[string]string)
	for _, m := range reNumberField.FindAllStringSubmatch(segment, -1) {
		out[m[1]] = m[2]
	}
	return out
}

func parseLinearModel(segment string) (LinearModel, error) {
	f := fields(segment)
	slope, ok := f["slope"]
	if !ok {
		return LinearModel{}, fmt.Errorf("missing slope")
	}
	intercept, ok := f["intercept"]
	if !ok {
		return LinearModel{}, fmt.Errorf("missing intercept")
	}
	s, err := strconv.ParseFloat(slope, 64)
	if err != nil {
		return LinearModel{}, fmt.Errorf("invalid slope %q: %w", slope, err)
	}
	c, err := strconv.ParseFloat(intercept, 64)
	if err != nil {
		return LinearModel{}, fmt.Errorf("invalid intercept %q: %w", intercept, err)
	}
	return LinearModel{Slope: s, Intercept: c}, nil
}

func parseSubModel(segment string) (SubModel, error) {
	model, err := parseLinearModel(segment)
	if err != nil {
		return SubModel{}, err
	}
	f := fields(segment)
	minErr, ok := f["min_error"]
	if !ok {
		return SubModel{}, fmt.Errorf("missing min_error")
	}
	maxErr, ok := f["max_error"]
	if !ok {
		return SubModel{}, fmt.Errorf("missing max_error")
	}
	lo, err := strconv.Atoi(minErr)
	if err != nil {
		return SubModel{}, fmt.Errorf("invalid min_error %q: %w", minErr, err)
	}
	hi, err := strconv.Atoi(maxErr)
	if err != nil {
		return SubModel{}, fmt.Errorf("invalid max_error %q: %w", maxErr, err)
	}
	return SubModel{Model: model, MinError: lo, MaxError: hi}, nil
}
