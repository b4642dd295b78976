package scene

import (
	"errors"
	"fmt"
)

// ErrProgressionExhausted is returned by NextScene when the turning
// point sequence has no further step. The driver treats it as the end
// of the simulation, not a failure.
var ErrProgressionExhausted = errors.New("turning point progression exhausted")

// SchemaError reports a parsed LLM reply that lacks a field the target
// record requires. Distinct from a parse failure: the model said
// valid-but-wrong-shaped JSON.
type SchemaError struct {
	Record string
	Field  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s record missing required field %q", e.Record, e.Field)
}

// PhaseError reports a scene-master method called outside its legal
// state-machine phase.
type PhaseError struct {
	Op   string
	Have Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s called in phase %s", e.Op, e.Have)
}
