// Package filter builds list-query predicates from a closed table of named,
// typed criteria. Each entity declares a Set; callers hand it the raw
// name -> value mapping from a request and get back parsed Criteria that
// apply as ANDed WHERE clauses.
package filter

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperr"
	"gorm.io/gorm"
)

// Kind is the value type a filter accepts.
type Kind int

const (
	KindText Kind = iota
	KindDecimal
	KindInteger
	KindTime
	KindID
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDecimal:
		return "decimal"
	case KindInteger:
		return "integer"
	case KindTime:
		return "time"
	case KindID:
		return "id"
	default:
		return "unknown"
	}
}

// Bound tells time parsing which end of a bare date to use.
type Bound int

const (
	BoundNone Bound = iota
	BoundLower
	BoundUpper
)

// Predicate narrows stmt using an already-typed value.
type Predicate func(stmt *gorm.DB, value any) *gorm.DB

// Definition binds a filter name to its value kind and predicate builder.
type Definition struct {
	Name      string
	Kind      Kind
	Bound     Bound
	Predicate Predicate
}

// Criterion is one parsed filter ready to apply.
type Criterion struct {
	def   Definition
	Value any
}

func (c Criterion) Name() string { return c.def.Name }

// Criteria are applied in the order their definitions were declared.
type Criteria []Criterion

var (
	ErrUnknownFilter = apperr.New(apperr.KindInvalidValue, "filter", "unknown_filter", "unknown filter")
	ErrInvalidFilter = apperr.New(apperr.KindInvalidFormat, "filter", "invalid_filter_value", "invalid filter value")
)

const dateOnlyLayout = "2006-01-02"

// Set is the closed table of filters accepted by one entity.
type Set struct {
	defs  []Definition
	index map[string]int
}

func NewSet(defs ...Definition) *Set {
	s := &Set{
		defs:  defs,
		index: make(map[string]int, len(defs)),
	}
	for i, def := range defs {
		if _, dup := s.index[def.Name]; dup {
			panic("filter: duplicate definition " + def.Name)
		}
		s.index[def.Name] = i
	}
	return s
}

// Has reports whether name is a declared filter.
func (s *Set) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Parse validates raw values and converts them to each filter's kind.
// Keys absent from raw add no constraint; an empty value is kept as-is for
// text filters.
func (s *Set) Parse(raw map[string]string) (Criteria, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	unknown := make([]string, 0)
	for name := range raw {
		if !s.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, ErrUnknownFilter.WithMessage("unknown filter %q", unknown[0])
	}

	out := make(Criteria, 0, len(raw))
	for _, def := range s.defs {
		value, ok := raw[def.Name]
		if !ok {
			continue
		}
		typed, err := parseValue(def, value)
		if err != nil {
			return nil, err
		}
		out = append(out, Criterion{def: def, Value: typed})
	}
	return out, nil
}

// Apply ANDs every criterion onto stmt.
func (c Criteria) Apply(stmt *gorm.DB) *gorm.DB {
	for _, criterion := range c {
		stmt = criterion.def.Predicate(stmt, criterion.Value)
	}
	return stmt
}

func parseValue(def Definition, raw string) (any, error) {
	invalid := func() error {
		return &apperr.Error{
			Kind:    apperr.KindInvalidFormat,
			Field:   def.Name,
			Code:    ErrInvalidFilter.Code,
			Message: "filter " + strconv.Quote(def.Name) + " expects a " + def.Kind.String() + " value",
		}
	}

	switch def.Kind {
	case KindText:
		return raw, nil
	case KindDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, invalid()
		}
		return d, nil
	case KindInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, invalid()
		}
		return n, nil
	case KindTime:
		t, err := parseTime(strings.TrimSpace(raw), def.Bound)
		if err != nil {
			return nil, invalid()
		}
		return t, nil
	case KindID:
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil || id == 0 {
			return nil, invalid()
		}
		return id, nil
	default:
		return nil, invalid()
	}
}

func parseTime(value string, bound Bound) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(dateOnlyLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	if bound == BoundUpper {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), nil
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}
