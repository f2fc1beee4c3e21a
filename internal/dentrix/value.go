// Copyright (c) 2025 FluidicML
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dentrix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags the scalar variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindTime
	KindBytes
)

// Value is a dynamically-typed scalar read from a result column. The tag
// preserves type information across the process boundary without relying on
// runtime type introspection.
type Value struct {
	kind  Kind
	i     int64
	f     float64
	s     string
	t     time.Time
	bytes []byte
}

func Null() Value            { return Value{kind: KindNull} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }
func Bytes(b []byte) Value   { return Value{kind: KindBytes, bytes: b} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// ValueOf converts a driver-provided scalar into a tagged Value. Types
// outside the closed variant set are rendered as strings.
func ValueOf(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case int64:
		return Int(x)
	case int32:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case bool:
		if x {
			return Int(1)
		}
		return Int(0)
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case string:
		return String(x)
	case time.Time:
		return Time(x)
	case []byte:
		return Bytes(x)
	default:
		return String(fmt.Sprint(x))
	}
}

// MarshalJSON renders the scalar in its natural JSON form: null, number,
// string, RFC 3339 timestamp, or base64 for raw bytes.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339))
	case KindBytes:
		return json.Marshal(v.bytes)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// Row is one result row: a mapping from column name to scalar value,
// preserving the column order of the underlying cursor.
type Row struct {
	Columns []string
	Values  []Value
}

// MarshalJSON emits the row as a JSON object in cursor column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
