package logging

import (
	"log/slog"
	"slices"
)

// scope tracks the WithAttrs/WithGroup state shared by the journal and
// buffer handlers. Attributes remember the groups open when they were added.
type scope struct {
	attrs  []scopedAttr
	groups []string
}

type scopedAttr struct {
	path []string
	attr slog.Attr
}

func (s scope) with(attrs []slog.Attr) scope {
	out := scope{
		attrs:  slices.Clip(s.attrs),
		groups: s.groups,
	}
	for _, a := range attrs {
		out.attrs = append(out.attrs, scopedAttr{path: s.groups, attr: a})
	}
	return out
}

func (s scope) group(name string) scope {
	if name == "" {
		return s
	}
	return scope{
		attrs:  s.attrs,
		groups: append(slices.Clip(s.groups), name),
	}
}

// walk visits every leaf attribute of the handler scope and the record.
// LogValuers are resolved, groups flattened, and empty attributes skipped.
func (s scope) walk(r slog.Record, visit func(path []string, a slog.Attr)) {
	for _, sa := range s.attrs {
		walkAttr(sa.path, sa.attr, visit)
	}
	r.Attrs(func(a slog.Attr) bool {
		walkAttr(s.groups, a, visit)
		return true
	})
}

func walkAttr(path []string, a slog.Attr, visit func([]string, slog.Attr)) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() != slog.KindGroup {
		visit(path, a)
		return
	}

	nested := path
	if a.Key != "" {
		nested = append(slices.Clip(path), a.Key)
	}
	for _, ga := range a.Value.Group() {
		walkAttr(nested, ga, visit)
	}
}
