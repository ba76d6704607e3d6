package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// record is one vendor JSON object decoded with UseNumber.
type record map[string]any

// text returns the first present field among keys as text. Keys are listed
// newest schema first. Non-scalar values count as absent.
func (r record) text(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case string:
			return x, true
		case json.Number:
			return x.String(), true
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(x), true
		}
	}
	return "", false
}

func decodeRecords(raw json.RawMessage) ([]record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out []record
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// firstArray returns the first key in body holding a JSON array. Keys holding
// null or a non-array value are skipped.
func firstArray(body map[string]json.RawMessage, keys ...string) (string, json.RawMessage) {
	for _, k := range keys {
		v, ok := body[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '[' {
			return k, v
		}
	}
	return "", nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding response object: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("decoding response object: got null")
	}
	return body, nil
}

func trimmed(s string, _ bool) string { return strings.TrimSpace(s) }
