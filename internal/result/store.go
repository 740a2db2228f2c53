package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound means no artifact exists at the requested location.
	ErrNotFound = errors.New("result set not found")
	// ErrCorruptResult means an artifact exists but cannot be parsed.
	ErrCorruptResult = errors.New("corrupt result set")
)

// Store persists result sets under a base directory. Paths are derived from
// the RunSpec, so repeated runs with an identical spec land at the same
// location. Writes publish atomically (temp file + rename), so a concurrent
// reader never observes a half-written artifact.
type Store struct {
	BaseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{BaseDir: baseDir}
}

// Key derives the run directory name from the spec: model identity, slice
// bounds, repetition count, and the plan source for coder runs all change the
// location.
func Key(spec RunSpec) string {
	name := sanitize(spec.ModelShort)
	if name == "" {
		name = sanitize(spec.Model)
	}
	if spec.PlanModel != "" {
		name = fmt.Sprintf("%s_with_%s-plan", name, sanitize(spec.PlanModel))
	}
	return fmt.Sprintf("%s_s%d-%d_k%d", name, spec.SliceStart, spec.SliceEnd, spec.Repetitions)
}

// Path returns the artifact path for a spec.
func (s *Store) Path(spec RunSpec) string {
	return filepath.Join(s.BaseDir, string(spec.Mode), Key(spec), "results.json")
}

// Write persists the set to the path derived from spec and returns that path.
func (s *Store) Write(spec RunSpec, set *ResultSet) (string, error) {
	path := s.Path(spec)
	if err := writeJSON(path, set); err != nil {
		return "", err
	}
	return path, nil
}

// Read loads a result set from an explicit artifact path.
func (s *Store) Read(path string) (*ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var set ResultSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptResult, path, err)
	}
	if set.Spec.Model == "" || !ValidMode(set.Spec.Mode) {
		return nil, fmt.Errorf("%w: %s: missing run metadata", ErrCorruptResult, path)
	}
	return &set, nil
}

// ReadSpec loads the result set previously written for spec, if any.
func (s *Store) ReadSpec(spec RunSpec) (*ResultSet, error) {
	return s.Read(s.Path(spec))
}

// WriteJudgments persists a judgment set next to the candidate results and
// returns the path.
func (s *Store) WriteJudgments(candidateKey, judgeModel string, js *JudgmentSet) (string, error) {
	name := fmt.Sprintf("%s_by_%s.json", sanitize(candidateKey), sanitize(judgeModel))
	path := filepath.Join(s.BaseDir, "judgments", name)
	if err := writeJSON(path, js); err != nil {
		return "", err
	}
	return path, nil
}

// ReadJudgments loads a judgment artifact from an explicit path.
func ReadJudgments(path string) (*JudgmentSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var js JudgmentSet
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptResult, path, err)
	}
	return &js, nil
}

func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling artifact: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting artifact mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing artifact: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	r := strings.NewReplacer("/", "_", ":", "_", " ", "_")
	return r.Replace(s)
}
