package invocation

// Param is a named argument value.
type Param struct {
	Name  string
	Value any
}

// Args are the arguments of one call: positional values followed by keyword
// parameters in call order.
type Args struct {
	Positional []any
	Keyword    []Param
}

// Positional builds Args from positional values only.
func Positional(values ...any) Args {
	return Args{Positional: values}
}

// Keyword builds Args from alternating name/value pairs.
// A trailing name without a value is paired with nil.
func Keyword(pairs ...any) Args {
	args := Args{Keyword: make([]Param, 0, (len(pairs)+1)/2)}
	for i := 0; i < len(pairs); i += 2 {
		name, _ := pairs[i].(string)
		var value any
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		args.Keyword = append(args.Keyword, Param{Name: name, Value: value})
	}
	return args
}

// With returns a copy of a with an extra keyword parameter appended.
func (a Args) With(name string, value any) Args {
	kw := make([]Param, len(a.Keyword), len(a.Keyword)+1)
	copy(kw, a.Keyword)
	return Args{
		Positional: a.Positional,
		Keyword:    append(kw, Param{Name: name, Value: value}),
	}
}

// Values returns positional values followed by keyword values, without
// parameter names. Two calls with equal value sequences produce equal Values
// even when their keyword names differ.
func (a Args) Values() []any {
	values := make([]any, 0, len(a.Positional)+len(a.Keyword))
	values = append(values, a.Positional...)
	for _, p := range a.Keyword {
		values = append(values, p.Value)
	}
	return values
}

// Lookup returns the value of the named keyword parameter.
func (a Args) Lookup(name string) (any, bool) {
	for _, p := range a.Keyword {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// KeywordMap returns the keyword parameters as a map. Later duplicates win.
func (a Args) KeywordMap() map[string]any {
	m := make(map[string]any, len(a.Keyword))
	for _, p := range a.Keyword {
		m[p.Name] = p.Value
	}
	return m
}

// Len returns the total number of argument values.
func (a Args) Len() int {
	return len(a.Positional) + len(a.Keyword)
}
