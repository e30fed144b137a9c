package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Link is one source item and the target items it points at, as produced by
// the relationship extractor.
type Link struct {
	Source  string
	Targets []string
}

// Links is an ordered relationship map {source: [targets...]}. It encodes as
// a JSON object but keeps the key order of the input, so edge construction
// follows extraction order rather than map iteration order.
type Links []Link

// MarshalJSON writes the links as a JSON object in slice order.
func (l Links) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, link := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(link.Source)
		if err != nil {
			return nil, err
		}
		targets := link.Targets
		if targets == nil {
			targets = []string{}
		}
		val, err := json.Marshal(targets)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order. Each value must be
// an array of strings or a single string, which is taken as one target; null
// means no targets. Any other shape is an error. A repeated source key merges
// its targets into the first occurrence.
func (l *Links) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("graph: links must be a JSON object, got %v", tok)
	}

	var out Links
	pos := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("graph: unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		targets, err := decodeTargets(raw)
		if err != nil {
			return fmt.Errorf("graph: targets of %q: %w", key, err)
		}

		if i, seen := pos[key]; seen {
			out[i].Targets = append(out[i].Targets, targets...)
			continue
		}
		pos[key] = len(out)
		out = append(out, Link{Source: key, Targets: targets})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

func decodeTargets(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	return nil, errors.New("want an array of strings or a string")
}
