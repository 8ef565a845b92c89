package record

import "fmt"

// Registry maps table names to their shapes.
type Registry struct {
	shapes  []*Shape
	byTable map[string]*Shape
}

// NewRegistry builds a registry over the given shapes. Table names must be
// unique.
func NewRegistry(shapes ...*Shape) (*Registry, error) {
	r := &Registry{byTable: make(map[string]*Shape, len(shapes))}
	for _, s := range shapes {
		if _, dup := r.byTable[s.Table]; dup {
			return nil, fmt.Errorf("duplicate table %q", s.Table)
		}
		r.byTable[s.Table] = s
		r.shapes = append(r.shapes, s)
	}
	return r, nil
}

var defaultRegistry *Registry

func init() {
	r, err := NewRegistry(shapes...)
	if err != nil {
		panic(err)
	}
	defaultRegistry = r
}

// Default returns the registry of every table the ingester writes.
func Default() *Registry {
	return defaultRegistry
}

// Shapes returns every shape in declaration order.
func (r *Registry) Shapes() []*Shape {
	return r.shapes
}

// Lookup returns the shape of a table.
func (r *Registry) Lookup(table string) (*Shape, bool) {
	s, ok := r.byTable[table]
	return s, ok
}

// IsDataTag reports whether tag names a serial data table reachable through
// Route. The info, output and server tables have dedicated builders.
func (r *Registry) IsDataTag(tag string) bool {
	switch tag {
	case TagInfo, TableOutput, TableServer:
		return false
	}
	_, ok := r.byTable[tag]
	return ok
}

// Route builds the data row for a serial line. fields[0] is the tag.
func (r *Registry) Route(ts, node string, fields []string) (Record, error) {
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("%w: empty payload", ErrUnknownTag)
	}
	tag := fields[0]
	if !r.IsDataTag(tag) {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return r.byTable[tag].Build([]string{ts, node}, fields[1:])
}

func (r *Registry) build(table string, envelope, fields []string) (Record, error) {
	s, ok := r.byTable[table]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownTag, table)
	}
	return s.Build(envelope, fields)
}

// Info builds an info row. The message is the whole payload, tag included.
func (r *Registry) Info(ts, node, payload string) (Record, error) {
	return r.build(TagInfo, []string{ts, node}, []string{payload})
}

// Output builds a row of free-form process output.
func (r *Registry) Output(ts, node, payload string) (Record, error) {
	return r.build(TableOutput, []string{ts, node}, []string{payload})
}

// Server builds a delivery-confirmation row.
func (r *Registry) Server(ts, address, port, payload string) (Record, error) {
	return r.build(TableServer, []string{ts}, []string{address, port, payload})
}
