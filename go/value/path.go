package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment addresses one step of a Path: either an object field name or an
// array index.
type Segment struct {
	field   string
	index   int
	isIndex bool
}

// FieldSeg constructs an object-field path segment.
func FieldSeg(key string) Segment { return Segment{field: key} }

// Index constructs an array-index path segment.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether the segment addresses an array index.
func (s Segment) IsIndex() bool { return s.isIndex }

// Key returns the field name; valid only when !IsIndex().
func (s Segment) Key() string { return s.field }

// Idx returns the array index; valid only when IsIndex().
func (s Segment) Idx() int { return s.index }

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.field
}

// Path is an ordered sequence of segments locating a container within a
// document tree. An empty Path addresses the document root itself.
type Path []Segment

// P is a convenience constructor mixing string (field) and int (index)
// arguments into a Path, e.g. P("a", 3, "b").
func P(parts ...interface{}) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch t := part.(type) {
		case string:
			p = append(p, FieldSeg(t))
		case int:
			p = append(p, Index(t))
		default:
			panic(fmt.Sprintf("value.P: unsupported path part %T", part))
		}
	}
	return p
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, s := range p {
		if i > 0 {
			b.WriteString(",")
		}
		if s.isIndex {
			b.WriteString(strconv.Itoa(s.index))
		} else {
			b.WriteString(strconv.Quote(s.field))
		}
	}
	b.WriteString("]")
	return b.String()
}
