package plan

import "strings"

// Segment is one step of a Flatten's response Path: a field name, whether
// that field's declared type is a list (so the segment renders
// bracketed), and, if the selection at this segment was narrowed from an
// abstract type, the concrete type name it was narrowed to.
type Segment struct {
	Name         string
	List         bool
	ConcreteType string
}

// Path is the response path from the plan's root to the parent entity a
// Flatten jumps from, e.g. `me.[reviews].attachment(Image)`.
//
// Bracket placement: this repo always brackets the segment whose own
// field type is a list (`[topProducts].user`), consistent with spec.md S1
// (`[collectiblesAll].collection`) and S4 (`[topProducts](Book)`). S5's
// prose shows `topProducts.[user]` instead; spec.md §9's open question (ii)
// flags this exact inconsistency as underspecified across fixtures and
// asks implementers to pick one rule and document it — this is that
// documented choice (see DESIGN.md).
type Path []Segment

// String renders the path the way spec.md §4.5/S1-S5 show it: dot-joined
// segments, list segments bracketed, abstract narrowing as a `(Type)`
// suffix on the segment where the narrowing happens.
func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, seg := range p {
		var b strings.Builder
		if seg.List {
			b.WriteByte('[')
			b.WriteString(seg.Name)
			b.WriteByte(']')
		} else {
			b.WriteString(seg.Name)
		}
		if seg.ConcreteType != "" {
			b.WriteByte('(')
			b.WriteString(seg.ConcreteType)
			b.WriteByte(')')
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ".")
}

// MarshalJSON renders Path as its string form, matching the plain-string
// `path` key spec.md §4.5 shows (not a structured array).
func (p Path) MarshalJSON() ([]byte, error) {
	return marshalJSONString(p.String())
}

// ParsePath is the inverse of Path.String, used when round-tripping a
// Flatten node's "path" key back out of JSON.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	segs := make(Path, 0, len(parts))
	for _, part := range parts {
		seg := Segment{}
		if idx := strings.IndexByte(part, '('); idx >= 0 && strings.HasSuffix(part, ")") {
			seg.ConcreteType = part[idx+1 : len(part)-1]
			part = part[:idx]
		}
		if strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]") {
			seg.List = true
			part = part[1 : len(part)-1]
		}
		seg.Name = part
		segs = append(segs, seg)
	}
	return segs
}
