package rmi

// LinearModel is a single slope/intercept pair: position = slope*key +
// intercept (rounded to the nearest integer by callers).
type LinearModel struct {
	Slope     float64
	Intercept float64
}

// SubModel is a stage-2 leaf model together with the signed residual bounds
// observed against its training keys. MinError is <= 0 and MaxError is
// >= 0; together they describe the search envelope around a prediction.
type SubModel struct {
	Model    LinearModel
	MinError int
	MaxError int
}

// Params is the full two-stage model: a stage-1 model routing a key to one
// of BranchFactor stage-2 sub-models, each of which predicts a position.
// The zero value (BranchFactor == 0) represents the "unloaded" state in
// which lookups transparently degrade to full-array binary search.
type Params struct {
	BranchFactor int
	Stage1       LinearModel
	Stage2       []SubModel
}

// Loaded reports whether a model has successfully been loaded.
func (p Params) Loaded() bool {
	return p.BranchFactor > 0 && len(p.Stage2) == p.BranchFactor
}
