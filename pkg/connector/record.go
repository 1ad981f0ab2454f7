package connector

import (
	"bytes"
	"encoding/json"
	"time"
)

// Field is a single key/value pair of a record.
type Field struct {
	Key   string
	Value interface{}
}

// Fields is an ordered set of fields. Keys are expected to be unique;
// Set keeps them unique, appending only when the key is new.
type Fields []Field

// Index returns the position of key, or -1 when absent.
func (f Fields) Index(key string) int {
	for i := range f {
		if f[i].Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (f Fields) Get(key string) (interface{}, bool) {
	if i := f.Index(key); i >= 0 {
		return f[i].Value, true
	}
	return nil, false
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	return f.Index(key) >= 0
}

// Set replaces the value of key in place, or appends a new field.
func (f *Fields) Set(key string, value interface{}) {
	if i := f.Index(key); i >= 0 {
		(*f)[i].Value = value
		return
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// Delete removes key, preserving the order of the remaining fields.
func (f *Fields) Delete(key string) {
	i := f.Index(key)
	if i < 0 {
		return
	}
	*f = append((*f)[:i], (*f)[i+1:]...)
}

// Keys returns the field names in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i := range f {
		keys[i] = f[i].Key
	}
	return keys
}

// Len returns the number of fields.
func (f Fields) Len() int {
	return len(f)
}

// Clone returns a shallow copy; nested values are shared.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Map returns the fields as an unordered map.
func (f Fields) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(f))
	for _, field := range f {
		m[field.Key] = field.Value
	}
	return m
}

// MarshalJSON encodes the fields as a JSON object in field order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Record is one event flowing through a pipeline: ordered fields plus a timestamp.
type Record struct {
	Time   time.Time
	Fields Fields
}

// NewRecord creates a record with the given timestamp and fields.
func NewRecord(t time.Time, fields ...Field) *Record {
	return &Record{Time: t, Fields: Fields(fields)}
}

// RecordFromMap builds a record from an unordered map.
// Field order follows the keys argument when given, otherwise map iteration order.
func RecordFromMap(t time.Time, m map[string]interface{}, keys ...string) *Record {
	rec := &Record{Time: t, Fields: make(Fields, 0, len(m))}
	if len(keys) > 0 {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				rec.Fields.Set(k, v)
			}
		}
		return rec
	}
	for k, v := range m {
		rec.Fields = append(rec.Fields, Field{Key: k, Value: v})
	}
	return rec
}

// Clone returns a copy of the record with its own field slice.
func (r *Record) Clone() *Record {
	return &Record{Time: r.Time, Fields: r.Fields.Clone()}
}

// recordJSON is the wire shape used for NDJSON output.
type recordJSON struct {
	Time   time.Time `json:"time"`
	Fields Fields    `json:"record"`
}

// MarshalJSON encodes the record as {"time": ..., "record": {...}}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{Time: r.Time, Fields: r.Fields})
}
