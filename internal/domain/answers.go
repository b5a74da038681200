package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeAnswers strictly decodes a raw answer array. Each element must be an
// object with a string optionId and an optional string questionId.
func DecodeAnswers(raw json.RawMessage) ([]Answer, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidAnswers
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, ErrInvalidAnswers
	}
	answers := make([]Answer, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("%w (element %d)", ErrInvalidAnswers, i)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			return nil, fmt.Errorf("%w (element %d)", ErrInvalidAnswers, i)
		}
		var a Answer
		for key, value := range fields {
			var dst *string
			switch key {
			case "questionId":
				dst = &a.QuestionID
			case "optionId":
				dst = &a.OptionID
			default:
				return nil, fmt.Errorf("%w (element %d: unknown field %q)", ErrInvalidAnswers, i, key)
			}
			value = bytes.TrimSpace(value)
			if len(value) == 0 || value[0] != '"' {
				return nil, fmt.Errorf("%w (element %d: %s must be a string)", ErrInvalidAnswers, i, key)
			}
			if err := json.Unmarshal(value, dst); err != nil {
				return nil, fmt.Errorf("%w (element %d: %s must be a string)", ErrInvalidAnswers, i, key)
			}
		}
		if _, ok := fields["optionId"]; !ok {
			return nil, fmt.Errorf("%w (element %d: optionId is required)", ErrInvalidAnswers, i)
		}
		answers = append(answers, a)
	}
	return answers, nil
}
