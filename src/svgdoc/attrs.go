package svgdoc

import "iter"

// Attr is a single name/value pair. Name is the qualified name as written,
// e.g. "xlink:href".
type Attr struct {
	Name  string
	Value string
}

// Attributes is an ordered attribute set with unique names. The zero value
// is ready to use.
type Attributes struct {
	list  []Attr
	index map[string]int
}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return len(a.list) }

// Get returns the value for name.
func (a *Attributes) Get(name string) (string, bool) {
	i, ok := a.index[name]
	if !ok {
		return "", false
	}
	return a.list[i].Value, true
}

// Has reports whether name is present.
func (a *Attributes) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Set replaces the value of an existing attribute in place, or appends a
// new one.
func (a *Attributes) Set(name, value string) {
	if i, ok := a.index[name]; ok {
		a.list[i].Value = value
		return
	}
	if a.index == nil {
		a.index = make(map[string]int)
	}
	a.index[name] = len(a.list)
	a.list = append(a.list, Attr{Name: name, Value: value})
}

// add appends without replacing. It reports false when name already exists.
func (a *Attributes) add(name, value string) bool {
	if a.Has(name) {
		return false
	}
	a.Set(name, value)
	return true
}

// Remove deletes name and reports whether it was present.
func (a *Attributes) Remove(name string) bool {
	i, ok := a.index[name]
	if !ok {
		return false
	}
	a.list = append(a.list[:i], a.list[i+1:]...)
	delete(a.index, name)
	for j := i; j < len(a.list); j++ {
		a.index[a.list[j].Name] = j
	}
	return true
}

// All iterates attributes in document order. Mutating the set while
// ranging is not supported; collect Names first.
func (a *Attributes) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, at := range a.list {
			if !yield(at.Name, at.Value) {
				return
			}
		}
	}
}

// Names returns a copy of the attribute names in order.
func (a *Attributes) Names() []string {
	names := make([]string, len(a.list))
	for i, at := range a.list {
		names[i] = at.Name
	}
	return names
}
