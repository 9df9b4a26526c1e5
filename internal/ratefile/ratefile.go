package ratefile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/cohort-api/internal/domain"
)

// ErrInvalidFile is returned for basis files that parse but do not describe
// a usable set of decrement tables.
var ErrInvalidFile = errors.New("invalid rate file")

// File is a parsed basis file.
//
//	bases:
//	  standard:
//	    death: {0: 0.001, 1: 0.002}
//	    lapse: [0.05, 0.07]
//
// A column is either a mapping from time step to rate or a sequence whose
// index is the time step.
type File struct {
	Bases map[string]Basis `yaml:"bases"`
}

// Basis maps decrement names to rate columns.
type Basis map[domain.Transition]Column

// Column is one decrement table keyed by time step.
type Column domain.RateTable

// UnmarshalYAML accepts both the mapping and the sequence form.
func (c *Column) UnmarshalYAML(node *yaml.Node) error {
	out := make(Column)

	switch node.Kind {
	case yaml.SequenceNode:
		for i, item := range node.Content {
			rate, err := parseRate(item)
			if err != nil {
				return err
			}
			out[i] = rate
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			t, err := strconv.Atoi(key.Value)
			if err != nil {
				return fmt.Errorf("line %d: time step %q is not an integer", key.Line, key.Value)
			}
			if _, dup := out[t]; dup {
				return fmt.Errorf("line %d: duplicate time step %d", key.Line, t)
			}
			rate, err := parseRate(value)
			if err != nil {
				return err
			}
			out[t] = rate
		}
	default:
		return fmt.Errorf("line %d: rate column must be a mapping or a sequence", node.Line)
	}

	*c = out
	return nil
}

func parseRate(node *yaml.Node) (float64, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: rate must be a number", node.Line)
	}
	rate, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: rate %q is not a number", node.Line, node.Value)
	}
	return rate, nil
}

// Load reads and validates a basis file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a basis file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every basis, transition name, time step and rate.
func (f *File) Validate() error {
	if len(f.Bases) == 0 {
		return fmt.Errorf("%w: no bases defined", ErrInvalidFile)
	}

	for _, name := range f.Names() {
		if name == "" {
			return fmt.Errorf("%w: basis name cannot be empty", ErrInvalidFile)
		}
		basis := f.Bases[name]
		if len(basis) == 0 {
			return fmt.Errorf("%w: basis %q has no tables", ErrInvalidFile, name)
		}
		for tr, column := range basis {
			if tr == "" || tr == domain.TransitionMaturity {
				return fmt.Errorf("%w: basis %q: %q is not a decrement", ErrInvalidFile, name, tr)
			}
			if len(column) == 0 {
				return fmt.Errorf("%w: basis %q: table %q is empty", ErrInvalidFile, name, tr)
			}
			for t, rate := range column {
				if t < 0 {
					return fmt.Errorf("%w: basis %q: table %q: negative time step %d",
						ErrInvalidFile, name, tr, t)
				}
				if math.IsNaN(rate) || rate < 0 || rate > 1 {
					return fmt.Errorf("%w: basis %q: table %q: rate %v at t=%d outside [0, 1]",
						ErrInvalidFile, name, tr, rate, t)
				}
			}
		}
	}

	return nil
}

// Names returns the basis names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Bases))
	for name := range f.Bases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tables returns copies of the named basis' tables.
func (f *File) Tables(name string) (map[domain.Transition]domain.RateTable, error) {
	basis, ok := f.Bases[name]
	if !ok {
		return nil, fmt.Errorf("%w: basis %q not defined", ErrInvalidFile, name)
	}

	tables := make(map[domain.Transition]domain.RateTable, len(basis))
	for tr, column := range basis {
		tables[tr] = domain.RateTable(column).Clone()
	}
	return tables, nil
}

// Basis returns the named basis as rate sources ready for projection.
func (f *File) Basis(name string) (domain.Basis, error) {
	tables, err := f.Tables(name)
	if err != nil {
		return nil, err
	}

	basis := make(domain.Basis, len(tables))
	for tr, table := range tables {
		basis[tr] = table
	}
	return basis, nil
}
