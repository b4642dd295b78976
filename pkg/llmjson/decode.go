package llmjson

import (
	"encoding/json"
	"fmt"
)

// SchemaError reports JSON that parsed successfully but lacks the shape
// a target record requires. It is distinct from ParseError so callers
// can tell "the model said nothing parseable" from "the model said
// valid-but-wrong-shaped JSON".
type SchemaError struct {
	Record string
	Field  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s record missing required field %q", e.Record, e.Field)
}

// DecodeValue converts an untyped parsed value into a typed record by
// re-encoding through encoding/json. Required-field validation is the
// caller's responsibility; use Require for the common string case.
func DecodeValue(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("re-encode parsed value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode into %T: %w", out, err)
	}
	return nil
}

// DecodeText parses raw LLM text and decodes the result into out.
func DecodeText(text string, out interface{}) error {
	v, err := Parse(text)
	if err != nil {
		return err
	}
	return DecodeValue(v, out)
}

// Require returns a SchemaError if the named string field is empty.
func Require(record, field, value string) error {
	if value == "" {
		return &SchemaError{Record: record, Field: field}
	}
	return nil
}
