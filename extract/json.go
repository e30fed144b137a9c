package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// errNoJSON is returned when a response holds no JSON value of the wanted kind.
var errNoJSON = errors.New("no JSON value found in response")

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON finds the outermost JSON value delimited by open/close in an
// LLM response, tolerating code fences and prose around it.
func extractJSON(raw string, open, close byte) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, close)
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", errNoJSON
}

// decodeJSON extracts and unmarshals a JSON value into v. Syntax errors
// such as trailing commas or single quotes get one repair attempt.
func decodeJSON(raw string, open, close byte, v any) error {
	s, err := extractJSON(raw, open, close)
	if err != nil {
		return err
	}
	err = json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("unmarshalling response: %w", err)
	}

	repaired, rerr := jsonrepair.JSONRepair(s)
	if rerr != nil {
		return fmt.Errorf("repairing response JSON: %w", rerr)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("unmarshalling repaired response: %w", err)
	}
	return nil
}
