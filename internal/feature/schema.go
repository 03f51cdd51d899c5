package feature

import (
	"fmt"
	"strings"
)

type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

func (k Kind) Valid() bool {
	return k == Numeric || k == Categorical
}

type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Schema is an ordered list of model input columns.
type Schema []Column

// Value holds one cell. Num is set for numeric columns, Str for categorical ones.
type Value struct {
	Num float64
	Str string
}

func Num(v float64) Value { return Value{Num: v} }

func Cat(s string) Value { return Value{Str: s} }

// Row is a set of values laid out in schema order.
type Row []Value

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Concat returns a new schema made of s followed by the other schemas.
func (s Schema) Concat(others ...Schema) Schema {
	n := len(s)
	for _, o := range others {
		n += len(o)
	}
	out := make(Schema, 0, n)
	out = append(out, s...)
	for _, o := range others {
		out = append(out, o...)
	}
	return out
}

// Validate checks for empty names, unknown kinds and duplicate columns.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, c := range s {
		if c.Name == "" {
			return fmt.Errorf("column %d: empty name", i)
		}
		if !c.Kind.Valid() {
			return fmt.Errorf("column %q: unknown kind %q", c.Name, c.Kind)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("column %q: duplicated", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Compare reports the first difference between s and want, or nil when both
// list the same columns with the same kinds in the same order.
func (s Schema) Compare(want Schema) error {
	for i := 0; i < len(s) && i < len(want); i++ {
		if s[i] != want[i] {
			return fmt.Errorf("position %d: have %s(%s), want %s(%s)",
				i, s[i].Name, s[i].Kind, want[i].Name, want[i].Kind)
		}
	}
	if len(s) != len(want) {
		return fmt.Errorf("have %d columns, want %d", len(s), len(want))
	}
	return nil
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.Name + ":" + string(c.Kind)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
