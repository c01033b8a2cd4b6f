package whisper

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed transcript.schema.json
var transcriptSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("transcript.schema.json", bytes.NewReader(transcriptSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("transcript.schema.json")
	})
	return compiled, compileErr
}

// ValidateJSON checks whisper output against the embedded schema.
func ValidateJSON(data []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal transcript: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("transcript does not match schema: %w", err)
	}
	return nil
}
