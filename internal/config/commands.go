/*
Package config
File: commands.go
Description:
    Typed command table for viewing and editing settings fields by name.
    Each entry knows how to parse its own value type, so edits never go
    through reflection. List fields support add/remove; scalar fields
    support set. Every field supports view.
*/

package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Op is a config edit operation.
type Op string

const (
	OpSet    Op = "set"
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpView   Op = "view"
)

var (
	ErrUnknownField      = errors.New("unknown config field")
	ErrUnsupportedOp     = errors.New("operation not supported for field")
	ErrInvalidFieldValue = errors.New("invalid value for field")
)

// Field is one row of the command table.
type Field struct {
	Name   string
	Get    func(*Settings) string
	Set    func(*Settings, string) error // nil for list-only fields
	Add    func(*Settings, string) error // nil for scalar fields
	Remove func(*Settings, string) error
}

func boolField(name string, ptr func(*Settings) *bool) Field {
	return Field{
		Name: name,
		Get:  func(s *Settings) string { return strconv.FormatBool(*ptr(s)) },
		Set: func(s *Settings, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w %s: %q", ErrInvalidFieldValue, name, v)
			}
			*ptr(s) = b
			return nil
		},
	}
}

func floatField(name string, ptr func(*Settings) *float64) Field {
	return Field{
		Name: name,
		Get:  func(s *Settings) string { return strconv.FormatFloat(*ptr(s), 'g', -1, 64) },
		Set: func(s *Settings, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%w %s: %q", ErrInvalidFieldValue, name, v)
			}
			*ptr(s) = f
			return nil
		},
	}
}

func intField(name string, ptr func(*Settings) *int) Field {
	return Field{
		Name: name,
		Get:  func(s *Settings) string { return strconv.Itoa(*ptr(s)) },
		Set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%w %s: %q", ErrInvalidFieldValue, name, v)
			}
			*ptr(s) = n
			return nil
		},
	}
}

func stringListField(name string, ptr func(*Settings) *[]string) Field {
	return Field{
		Name: name,
		Get:  func(s *Settings) string { return strings.Join(*ptr(s), "\n") },
		Add: func(s *Settings, v string) error {
			list := ptr(s)
			if !slices.Contains(*list, v) {
				*list = append(*list, v)
			}
			return nil
		},
		Remove: func(s *Settings, v string) error {
			list := ptr(s)
			*list = slices.DeleteFunc(*list, func(e string) bool { return e == v })
			return nil
		},
	}
}

// cushioning is view-only; entries are edited in the file.
func cushioningField() Field {
	return Field{
		Name: "CushioningBlocks",
		Get: func(s *Settings) string {
			var b strings.Builder
			for _, e := range s.CushioningBlocks {
				fmt.Fprintf(&b, "%s-%s: %g\n", e.TypeID, e.SubtypeID, e.CushionFactor)
			}
			return b.String()
		},
	}
}

var commandTable = buildCommandTable()

func buildCommandTable() map[string]Field {
	fields := []Field{
		cushioningField(),
		boolField("IgnoreJetpack", func(s *Settings) *bool { return &s.IgnoreJetpack }),
		boolField("IgnoreRelativeDampers", func(s *Settings) *bool { return &s.IgnoreRelativeDampers }),
		boolField("IgnoreRespawnShips", func(s *Settings) *bool { return &s.IgnoreRespawnShips }),
		boolField("IgnoreCharacter", func(s *Settings) *bool { return &s.IgnoreCharacter }),
		boolField("HideHUDInCreative", func(s *Settings) *bool { return &s.HideHUDInCreative }),
		floatField("SafeMaximum", func(s *Settings) *float64 { return &s.SafeMaximum }),
		floatField("DamageScaleBase", func(s *Settings) *float64 { return &s.DamageScaleBase }),
		intField("TimeScaling", func(s *Settings) *int { return &s.TimeScaling }),
		stringListField("IgnoredGridNames", func(s *Settings) *[]string { return &s.IgnoredGridNames }),
	}
	table := make(map[string]Field, len(fields))
	for _, f := range fields {
		table[f.Name] = f
	}
	return table
}

// FieldNames lists every editable field, sorted.
func FieldNames() []string {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs op against the named field of s. It returns the field's value
// after the operation. Edits that leave s invalid are rolled back.
func Apply(s *Settings, op Op, name, value string) (string, error) {
	field, ok := commandTable[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	var fn func(*Settings, string) error
	switch op {
	case OpView:
		return field.Get(s), nil
	case OpSet:
		fn = field.Set
	case OpAdd:
		fn = field.Add
	case OpRemove:
		fn = field.Remove
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOp, op)
	}
	if fn == nil {
		return "", fmt.Errorf("%w: %s %s", ErrUnsupportedOp, op, name)
	}

	edited := s.Clone()
	if err := fn(&edited, value); err != nil {
		return "", err
	}
	if err := edited.Validate(); err != nil {
		return "", err
	}
	*s = edited
	return field.Get(s), nil
}
