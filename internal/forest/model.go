// Package forest loads and evaluates tree-ensemble regression models exported
// from a trained random forest.
package forest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FormatV1 is the only artifact format understood by Load
const FormatV1 = "tree-ensemble/v1"

const leaf = -1

// ErrColumnMismatch is returned when the frame columns differ from the
// columns the model was fitted with.
var ErrColumnMismatch = errors.New("forest: feature columns do not match the model")

// Tree holds the flat node arrays of one fitted regression tree. Node 0 is
// the root; leaves have children -1.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

// Artifact is the on-disk representation of a model
type Artifact struct {
	Format       string   `json:"format"`
	NFeatures    int      `json:"n_features"`
	FeatureNames []string `json:"feature_names,omitempty"`
	Trees        []Tree   `json:"trees"`
}

// Model is an immutable, loaded ensemble
type Model struct {
	path         string
	nFeatures    int
	featureNames []string
	trees        []Tree
	loadedAt     time.Time
}

// Info describes a loaded model
type Info struct {
	Path         string    `json:"path"`
	Format       string    `json:"format"`
	Trees        int       `json:"trees"`
	NFeatures    int       `json:"n_features"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Frame is a table of rows laid out in Columns order
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// Load reads and validates an artifact. Gzip and zstd compressed files are
// detected from their content.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	data, err := decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("decompress model artifact %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	m, err := New(a)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// New validates an artifact and builds a model from it
func New(a Artifact) (*Model, error) {
	if a.Format != FormatV1 {
		return nil, fmt.Errorf("unsupported format %q", a.Format)
	}
	if a.NFeatures <= 0 {
		return nil, fmt.Errorf("n_features must be positive, got %d", a.NFeatures)
	}
	if a.FeatureNames != nil && len(a.FeatureNames) != a.NFeatures {
		return nil, fmt.Errorf("%d feature names for %d features", len(a.FeatureNames), a.NFeatures)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("no trees")
	}
	for i := range a.Trees {
		if err := a.Trees[i].validate(a.NFeatures); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}

	return &Model{
		nFeatures:    a.NFeatures,
		featureNames: append([]string(nil), a.FeatureNames...),
		trees:        a.Trees,
		loadedAt:     time.Now(),
	}, nil
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.Value)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n {
		return fmt.Errorf("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf && r == leaf {
			continue
		}
		// Children always come after their parent in the export.
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("node %d has invalid children %d, %d", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, f, nFeatures)
		}
	}
	return nil
}

func (t *Tree) predict(row []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		// Thresholds are fitted on float32 inputs.
		if float64(float32(row[t.Feature[node]])) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// CheckColumns verifies the columns match the fitted feature names (or the
// feature count when the artifact records no names).
func (m *Model) CheckColumns(columns []string) error {
	if len(columns) != m.nFeatures {
		return fmt.Errorf("%w: got %d columns, model expects %d", ErrColumnMismatch, len(columns), m.nFeatures)
	}
	if m.featureNames == nil {
		return nil
	}
	for i, name := range m.featureNames {
		if columns[i] != name {
			return fmt.Errorf("%w: column %d is %q, model expects %q", ErrColumnMismatch, i, columns[i], name)
		}
	}
	return nil
}

// Predict returns the ensemble mean for every row of the frame
func (m *Model) Predict(frame Frame) ([]float64, error) {
	if err := m.CheckColumns(frame.Columns); err != nil {
		return nil, err
	}

	out := make([]float64, len(frame.Rows))
	for i, row := range frame.Rows {
		if len(row) != m.nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d values", ErrColumnMismatch, i, len(row))
		}
		var sum float64
		for j := range m.trees {
			sum += m.trees[j].predict(row)
		}
		out[i] = sum / float64(len(m.trees))
	}
	return out, nil
}

// FeatureNames returns the recorded feature names, or nil if none were
// exported with the model.
func (m *Model) FeatureNames() []string {
	if m.featureNames == nil {
		return nil
	}
	return append([]string(nil), m.featureNames...)
}

// Info returns a summary of the model
func (m *Model) Info() Info {
	return Info{
		Path:         m.path,
		Format:       FormatV1,
		Trees:        len(m.trees),
		NFeatures:    m.nFeatures,
		FeatureNames: m.FeatureNames(),
		LoadedAt:     m.loadedAt,
	}
}

// Save writes an artifact to path, compressed according to its extension.
func Save(path string, a Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}
	data, err = compress(data, CompressionForPath(path))
	if err != nil {
		return fmt.Errorf("compress model artifact: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
