package observability

// Item pairs a state accessor of protocol type T with its declaration.
// Field names the backing state, e.g. "num_msgs_sent".
//
// Read may return any numeric value, a bool, a type with Sum() or Load(),
// or an error when the value is unavailable.
type Item[T any] struct {
	Field       string
	Declaration Declaration
	Read        func(T) any
}

// Binding is an Item bound to one protocol instance.
type Binding struct {
	Field       string
	Declaration Declaration
	Read        func() any
}

// Observable is implemented by protocols publishing declared state.
type Observable interface {
	Observables() []Binding
}

// Schema is the static list of declared items of a protocol type.
type Schema[T any] struct {
	items []Item[T]
}

// NewSchema returns a schema declaring items in order.
func NewSchema[T any](items ...Item[T]) *Schema[T] {
	return &Schema[T]{items: items}
}

// Inherit returns a schema holding the items of base, read through up,
// followed by items. Base items come first, as with inherited fields.
func Inherit[T, B any](base *Schema[B], up func(T) B, items ...Item[T]) *Schema[T] {
	all := make([]Item[T], 0, base.Len()+len(items))
	if base != nil {
		for _, it := range base.items {
			read := it.Read
			all = append(all, Item[T]{
				Field:       it.Field,
				Declaration: it.Declaration,
				Read:        func(p T) any { return read(up(p)) },
			})
		}
	}
	return &Schema[T]{items: append(all, items...)}
}

func (s *Schema[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the declared items.
func (s *Schema[T]) Items() []Item[T] {
	if s == nil {
		return nil
	}
	return append([]Item[T](nil), s.items...)
}

// Bind binds every item to p.
func (s *Schema[T]) Bind(p T) []Binding {
	if s == nil {
		return nil
	}
	out := make([]Binding, len(s.items))
	for i, it := range s.items {
		read := it.Read
		out[i] = Binding{
			Field:       it.Field,
			Declaration: it.Declaration,
			Read:        func() any { return read(p) },
		}
	}
	return out
}
