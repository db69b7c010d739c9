package kv

import (
	"encoding/binary"
	"encoding/json"
	"reflect"

	perr "archivist/internal/platform/errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Encode turns a cell value into bytes: raw bytes pass through, strings become UTF-8,
// string-keyed maps become BSON documents and everything else is JSON
func Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		b, err := bson.Marshal(v)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "kv: bson encode")
		}
		return b, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "kv: json encode")
	}
	return b, nil
}

// DecodeMap decodes a BSON document written by Encode
func DecodeMap(b []byte) (map[string]any, error) {
	if !looksLikeBSON(b) {
		return nil, perr.Decodef("kv: cell is not a BSON document (%d bytes)", len(b))
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDecode, "kv: bson decode")
	}
	return plain(m).(map[string]any), nil
}

// DecodeJSON decodes a JSON cell into a generic value
func DecodeJSON(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDecode, "kv: json decode")
	}
	return v, nil
}

// DecodeValue guesses the encoding of a cell: BSON document, then JSON, then UTF-8 text
func DecodeValue(b []byte) any {
	if m, err := DecodeMap(b); err == nil {
		return m
	}
	if json.Valid(b) {
		if v, err := DecodeJSON(b); err == nil {
			return v
		}
	}
	return string(b)
}

// a BSON document starts with its own little-endian int32 length and ends with NUL
func looksLikeBSON(b []byte) bool {
	if len(b) < 5 || b[len(b)-1] != 0 {
		return false
	}
	return int(binary.LittleEndian.Uint32(b[:4])) == len(b)
}

// plain converts driver document and array types into map[string]any and []any
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = plain(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	default:
		return v
	}
}
