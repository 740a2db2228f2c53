// Package corpus loads the fixed problem corpus and selects run slices from
// it. Problems are globally ordered by their permanent id, never by file
// position, so a slice selects the same identities no matter how the corpus
// file is rearranged or appended to.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrBadSlice means slice bounds are malformed or outside the corpus.
var ErrBadSlice = errors.New("invalid slice")

// Problem is one read-only corpus entry. Answer is the reference used by the
// direct-eval path and may be empty for agentic-only corpora.
type Problem struct {
	ID        string            `yaml:"id"`
	Statement string            `yaml:"statement"`
	Answer    string            `yaml:"answer,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

// Corpus holds problems sorted by id.
type Corpus struct {
	problems []Problem
}

// Load reads a corpus file (a YAML list of problems), validates ids, and
// fixes the global order by sorting on id.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	var problems []Problem
	if err := yaml.Unmarshal(data, &problems); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("corpus %s: no problems defined", path)
	}
	seen := make(map[string]bool, len(problems))
	for i, p := range problems {
		if p.ID == "" {
			return nil, fmt.Errorf("corpus %s: problem %d: id is required", path, i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("corpus %s: duplicate problem id %q", path, p.ID)
		}
		seen[p.ID] = true
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].ID < problems[j].ID })
	return &Corpus{problems: problems}, nil
}

// Len returns the corpus size.
func (c *Corpus) Len() int { return len(c.problems) }

// All returns every problem in global order.
func (c *Corpus) All() []Problem {
	out := make([]Problem, len(c.problems))
	copy(out, c.problems)
	return out
}

// Lookup returns the problem with the given id.
func (c *Corpus) Lookup(id string) (Problem, bool) {
	i := sort.Search(len(c.problems), func(i int) bool { return c.problems[i].ID >= id })
	if i < len(c.problems) && c.problems[i].ID == id {
		return c.problems[i], true
	}
	return Problem{}, false
}

// Slice returns problems [start, end) in global order.
func (c *Corpus) Slice(start, end int) ([]Problem, error) {
	if start < 0 || start >= end {
		return nil, fmt.Errorf("%w: %d:%d", ErrBadSlice, start, end)
	}
	if end > len(c.problems) {
		return nil, fmt.Errorf("%w: %d:%d exceeds corpus size %d", ErrBadSlice, start, end, len(c.problems))
	}
	out := make([]Problem, end-start)
	copy(out, c.problems[start:end])
	return out, nil
}

// ParseSlice parses a "start:end" slice expression.
func ParseSlice(s string) (start, end int, err error) {
	lhs, rhs, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q (want start:end)", ErrBadSlice, s)
	}
	start, err = strconv.Atoi(strings.TrimSpace(lhs))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: bad start", ErrBadSlice, s)
	}
	end, err = strconv.Atoi(strings.TrimSpace(rhs))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: bad end", ErrBadSlice, s)
	}
	if start < 0 || start >= end {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadSlice, s)
	}
	return start, end, nil
}
