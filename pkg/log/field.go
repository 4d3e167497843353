package log

// Field is a single piece of structured context attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Str builds a string field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 builds a 64-bit integer field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Uint64 builds an unsigned 64-bit integer field.
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

// Bool builds a boolean field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Any builds a field from an arbitrary value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Component tags a log entry with the emitting component name.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }

// Err builds an error field; if err is nil the field's value is nil.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func fieldsToMap(fields []Field) Fields {
	if len(fields) == 0 {
		return nil
	}
	m := make(Fields, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

func mergeFields(base Fields, extra ...Field) Fields {
	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for _, f := range extra {
		out[f.Key] = f.Value
	}
	return out
}
