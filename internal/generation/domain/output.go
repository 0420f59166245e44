package domain

type OutputKind int

const (
	OutputNull OutputKind = iota
	OutputText
	OutputList
	OutputObject
)

func (k OutputKind) String() string {
	switch k {
	case OutputText:
		return "text"
	case OutputList:
		return "list"
	case OutputObject:
		return "object"
	default:
		return "null"
	}
}

// Output is the provider's heterogeneous result as a closed union.
type Output struct {
	Kind   OutputKind
	Text   string
	Items  []Output
	Object *Object
}

// Object carries the fields normalization understands. A nil field is absent.
type Object struct {
	URL   *URLField
	Audio *Output
}

// URLField is either a literal string or a zero-argument accessor.
type URLField struct {
	literal  string
	deferred func() (string, error)
}

func Literal(url string) *URLField {
	return &URLField{literal: url}
}

func Deferred(fn func() (string, error)) *URLField {
	return &URLField{deferred: fn}
}

func (f *URLField) IsDeferred() bool {
	return f != nil && f.deferred != nil
}

// Resolve returns the literal, or invokes the accessor.
func (f *URLField) Resolve() (string, error) {
	if f == nil {
		return "", nil
	}
	if f.deferred != nil {
		return f.deferred()
	}
	return f.literal, nil
}

func Null() Output { return Output{Kind: OutputNull} }

func Text(value string) Output { return Output{Kind: OutputText, Text: value} }

func List(items ...Output) Output {
	if items == nil {
		items = []Output{}
	}
	return Output{Kind: OutputList, Items: items}
}

func ObjectOutput(obj Object) Output { return Output{Kind: OutputObject, Object: &obj} }

// Raw renders the output as plain values for diagnostic logging. Deferred
// accessors are not invoked.
func (o Output) Raw() any {
	switch o.Kind {
	case OutputText:
		return o.Text
	case OutputList:
		items := make([]any, 0, len(o.Items))
		for _, item := range o.Items {
			items = append(items, item.Raw())
		}
		return items
	case OutputObject:
		fields := map[string]any{}
		if o.Object == nil {
			return fields
		}
		if o.Object.URL != nil {
			if o.Object.URL.IsDeferred() {
				fields["url"] = "<deferred>"
			} else {
				fields["url"] = o.Object.URL.literal
			}
		}
		if o.Object.Audio != nil {
			fields["audio"] = o.Object.Audio.Raw()
		}
		return fields
	default:
		return nil
	}
}
