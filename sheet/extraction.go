package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Default headers used when a flat key/value payload carries no column names.
var kvHeaders = []string{"字段", "值"}

var ErrEmptyPayload = errors.New("extraction payload is empty")

// LoadFromExtraction maps an arbitrary extraction result into the active
// sheet's headers and grid, replacing its previous contents. Three payload
// shapes are accepted:
//
//   - an array of row objects: headers are the keys of the first element, in
//     document order;
//   - an object with a "data" array: same as above, applied to that array;
//   - any other object: a fixed two-column field-name/field-value shape with
//     one row per entry.
//
// All values are stringified. Commits a history snapshot.
func (d *Document) LoadFromExtraction(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ErrEmptyPayload
	}

	headers, rows, err := mapPayload(raw)
	if err != nil {
		return err
	}

	s := d.ActiveSheet()
	s.Headers = headers
	s.Grid = make(map[Addr]*Cell)
	for r, row := range rows {
		for c, text := range row {
			if text == "" {
				continue
			}
			s.Grid[Addr{Row: r, Col: c}] = &Cell{Value: text}
		}
	}
	d.pushHistory()
	return nil
}

func mapPayload(raw []byte) (headers []string, rows [][]string, err error) {
	switch raw[0] {
	case '[':
		return mapRowObjects(raw)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, nil, fmt.Errorf("invalid extraction payload: %w", err)
		}
		if data, ok := obj["data"]; ok && len(bytes.TrimSpace(data)) > 0 && bytes.TrimSpace(data)[0] == '[' {
			return mapRowObjects(data)
		}
		return mapFlatObject(raw)
	default:
		return nil, nil, errors.New("unsupported extraction payload shape")
	}
}

// mapRowObjects maps an array of objects: headers come from the first
// element's keys in document order, one grid row per element.
func mapRowObjects(raw []byte) ([]string, [][]string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nil, fmt.Errorf("invalid extraction payload: %w", err)
	}
	if len(elems) == 0 {
		return []string{}, nil, nil
	}

	headers, err := objectKeysInOrder(elems[0])
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]string, 0, len(elems))
	for _, elem := range elems {
		var fields map[string]any
		if err := json.Unmarshal(elem, &fields); err != nil {
			return nil, nil, fmt.Errorf("invalid extraction row: %w", err)
		}
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = stringify(fields[h])
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// mapFlatObject maps a plain key/value object into the fixed two-column
// shape: one row per entry, keys in document order.
func mapFlatObject(raw []byte) ([]string, [][]string, error) {
	keys, err := objectKeysInOrder(raw)
	if err != nil {
		return nil, nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, fmt.Errorf("invalid extraction payload: %w", err)
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, stringify(fields[k])})
	}
	return append([]string(nil), kvHeaders...), rows, nil
}

// objectKeysInOrder returns a JSON object's keys in document order.
// encoding/json maps lose ordering, so the keys are read off the token
// stream instead.
func objectKeysInOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("extraction payload element is not an object")
	}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("invalid extraction payload key")
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
