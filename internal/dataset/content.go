package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metaDataKeys lists the required meta_data members in the order they are reported
var metaDataKeys = []struct {
	name       string
	schemaType string
}{
	{"properties", "integer"},
	{"triples", "integer"},
	{"classes", "integer"},
	{"endpoint", "string"},
	{"crawl_date", "string"},
}

// contentRule is one allOf branch and the message reported when it is the first to fail
type contentRule struct {
	schema  map[string]any
	message string
}

var contentSchema, contentMessages = compileContentSchema()

func compileContentSchema() (*jsonschema.Schema, []string) {
	metaData := func(s map[string]any) map[string]any {
		return map[string]any{"properties": map[string]any{"meta_data": s}}
	}

	rules := []contentRule{
		{map[string]any{"type": "object", "required": []string{"meta_data"}}, "meta_data does not exist"},
		{metaData(map[string]any{"type": "object"}), "meta_data is invalid type"},
	}
	for _, key := range metaDataKeys {
		rules = append(rules,
			contentRule{
				metaData(map[string]any{"required": []string{key.name}}),
				key.name + " does not exist",
			},
			contentRule{
				metaData(map[string]any{"properties": map[string]any{key.name: map[string]any{"type": key.schemaType}}}),
				key.name + " is invalid type",
			},
		)
	}

	allOf := make([]map[string]any, len(rules))
	messages := make([]string, len(rules))
	for i, r := range rules {
		allOf[i] = r.schema
		messages[i] = r.message
	}

	doc, err := json.Marshal(map[string]any{"allOf": allOf})
	if err != nil {
		panic(fmt.Sprintf("dataset: failed to encode content schema: %v", err))
	}

	return jsonschema.MustCompileString("content.schema.json", string(doc)), messages
}

// ValidateContent checks that raw is a JSON document carrying a well-typed meta_data object
func ValidateContent(raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Field: "file", Message: err.Error()}
	}

	err := contentSchema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("failed to validate content: %w", err)
	}

	idx := firstFailedRule(verr, len(contentMessages))
	if idx >= len(contentMessages) {
		return &ValidationError{Field: "meta_data", Message: verr.Error()}
	}
	return &ValidationError{Field: "meta_data", Message: contentMessages[idx]}
}

// firstFailedRule returns the lowest allOf index found in the error tree, or limit
func firstFailedRule(verr *jsonschema.ValidationError, limit int) int {
	best := limit
	if rest, ok := strings.CutPrefix(verr.KeywordLocation, "/allOf/"); ok {
		head, _, _ := strings.Cut(rest, "/")
		if i, err := strconv.Atoi(head); err == nil && i < best {
			best = i
		}
	}
	for _, cause := range verr.Causes {
		if i := firstFailedRule(cause, limit); i < best {
			best = i
		}
	}
	return best
}
