package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Follow-up parse failures.
var (
	ErrFollowUpMalformed = errors.New("follow-up reply is not valid JSON")
	ErrFollowUpSchema    = errors.New("follow-up reply violates schema")
)

const questionsField = "questions"

// SchemaError names the field and rule a follow-up reply broke.
type SchemaError struct {
	Field string
	Rule  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrFollowUpSchema, e.Field, e.Rule)
}

// Is makes errors.Is(err, ErrFollowUpSchema) match every SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrFollowUpSchema }

func followUpSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			questionsField: {
				Type:        jsonschema.Array,
				Description: "List of suggested questions",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required:             []string{questionsField},
		AdditionalProperties: false,
	}
}

// formatInstructions tells models without structured output how to shape the reply.
func formatInstructions() string {
	schema, err := json.Marshal(followUpSchema())
	if err != nil {
		panic(fmt.Sprintf("marshal follow-up schema: %v", err))
	}
	return "The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n" +
		"```json\n" + string(schema) + "\n```\n\nReturn only the JSON object."
}

// stripFence removes an optional ```json ... ``` wrapper.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, "```")
	if !ok {
		return text
	}
	rest = strings.TrimPrefix(rest, "json")
	rest, ok = strings.CutSuffix(strings.TrimSpace(rest), "```")
	if !ok {
		return text
	}
	return strings.TrimSpace(rest)
}

// parseFollowUps strictly decodes {"questions": [string...]} and keeps at most limit items.
func parseFollowUps(text string, limit int) ([]string, error) {
	payload := stripFence(text)

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFollowUpMalformed, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &SchemaError{Field: "$", Rule: "must be an object"}
	}

	for name := range obj {
		if name != questionsField {
			return nil, &SchemaError{Field: name, Rule: "unknown field"}
		}
	}

	value, ok := obj[questionsField]
	if !ok {
		return nil, &SchemaError{Field: questionsField, Rule: "required"}
	}
	items, ok := value.([]any)
	if !ok {
		return nil, &SchemaError{Field: questionsField, Rule: "must be an array"}
	}

	questions := make([]string, 0, len(items))
	for i, item := range items {
		q, ok := item.(string)
		if !ok {
			return nil, &SchemaError{Field: fmt.Sprintf("%s[%d]", questionsField, i), Rule: "must be a string"}
		}
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, &SchemaError{Field: fmt.Sprintf("%s[%d]", questionsField, i), Rule: "must not be empty"}
		}
		questions = append(questions, q)
	}

	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}
