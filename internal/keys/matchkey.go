package keys

import (
	"sort"

	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	tagExact byte = iota + 1
	tagLPM
	tagTernary
	tagRange
	tagValid
)

// BuildMatchKey validates entry.Match against table's declared match fields
// and returns the canonical key. An empty Match list is the table's default
// entry and canonicalizes to the empty key; it is never validated against
// field declarations.
func BuildMatchKey(table *p4info.Table, match []p4rt.FieldMatch) (CanonicalKey, error) {
	if len(match) == 0 {
		return CanonicalKey(""), nil // default entry
	}

	if len(match) != len(table.MatchFields) {
		return "", status.Errorf(codes.InvalidArgument,
			"table %d requires %d match fields, got %d", table.ID, len(table.MatchFields), len(match))
	}

	fieldsByID := make(map[uint32]p4info.MatchField, len(table.MatchFields))
	for _, f := range table.MatchFields {
		fieldsByID[f.ID] = f
	}

	// canonicalize in declared field order, independent of request order
	byID := make(map[uint32]p4rt.FieldMatch, len(match))
	for _, m := range match {
		if _, ok := fieldsByID[m.FieldID]; !ok {
			return "", status.Errorf(codes.InvalidArgument,
				"table %d has no match field %d", table.ID, m.FieldID)
		}
		if _, dup := byID[m.FieldID]; dup {
			return "", status.Errorf(codes.InvalidArgument,
				"duplicate match field %d in request", m.FieldID)
		}
		byID[m.FieldID] = m
	}

	ordered := make([]p4info.MatchField, len(table.MatchFields))
	copy(ordered, table.MatchFields)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var parts [][]byte
	for _, field := range ordered {
		m := byID[field.ID]
		part, err := buildFieldKey(field, m)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return CanonicalKey(out), nil
}

func buildFieldKey(field p4info.MatchField, m p4rt.FieldMatch) ([]byte, error) {
	switch field.MatchKind {
	case p4info.MatchExact:
		if m.Exact == nil {
			return nil, invalidFieldKind(field, "exact")
		}
		if err := validateCanonicalBytes(m.Exact.Value, field.Bitwidth); err != nil {
			return nil, err
		}
		return canonicalFieldLayout(field.ID, tagExact, m.Exact.Value), nil

	case p4info.MatchLPM:
		if m.LPM == nil {
			return nil, invalidFieldKind(field, "lpm")
		}
		if err := validateCanonicalBytes(m.LPM.Value, field.Bitwidth); err != nil {
			return nil, err
		}
		if m.LPM.PrefixLen < 0 || m.LPM.PrefixLen > field.Bitwidth {
			return nil, status.Errorf(codes.InvalidArgument,
				"lpm prefix_len %d exceeds bitwidth %d", m.LPM.PrefixLen, field.Bitwidth)
		}
		prefixBytes := []byte{byte(m.LPM.PrefixLen >> 8), byte(m.LPM.PrefixLen)}
		return canonicalFieldLayout(field.ID, tagLPM, m.LPM.Value, prefixBytes), nil

	case p4info.MatchTernary:
		if m.Ternary == nil {
			return nil, invalidFieldKind(field, "ternary")
		}
		value := m.Ternary.Value
		mask := m.Ternary.Mask
		if err := validateCanonicalBytes(value, field.Bitwidth); err != nil {
			return nil, err
		}
		if len(mask) == 0 {
			// over-permissive default: an empty mask is the all-zero mask
			mask = make([]byte, byteLenForBitwidth(field.Bitwidth))
		} else if err := validateCanonicalBytes(mask, field.Bitwidth); err != nil {
			return nil, err
		}
		return canonicalFieldLayout(field.ID, tagTernary, value, mask), nil

	case p4info.MatchRange:
		if m.Range == nil {
			return nil, invalidFieldKind(field, "range")
		}
		if err := validateCanonicalBytes(m.Range.Low, field.Bitwidth); err != nil {
			return nil, err
		}
		if err := validateCanonicalBytes(m.Range.High, field.Bitwidth); err != nil {
			return nil, err
		}
		if !bytesLessOrEqual(m.Range.Low, m.Range.High) {
			return nil, status.Errorf(codes.InvalidArgument, "range low > high on field %d", field.ID)
		}
		return canonicalFieldLayout(field.ID, tagRange, m.Range.Low, m.Range.High), nil

	case p4info.MatchValid:
		if m.Valid == nil {
			return nil, invalidFieldKind(field, "valid")
		}
		v := byte(0)
		if m.Valid.Value {
			v = 1
		}
		return canonicalFieldLayout(field.ID, tagValid, []byte{v}), nil

	default:
		return nil, status.Errorf(codes.InvalidArgument, "field %d has unspecified match kind", field.ID)
	}
}

func invalidFieldKind(field p4info.MatchField, want string) error {
	return status.Errorf(codes.InvalidArgument,
		"field %d expects a %s match value", field.ID, want)
}

// IsDefaultEntry reports whether key addresses a table's default entry.
func IsDefaultEntry(key CanonicalKey) bool {
	return key == ""
}
