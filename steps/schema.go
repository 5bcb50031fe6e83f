package steps

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSON schemas forwarded to envelope providers so agents are told the
// exact output shape expected. The acceptance schema is additionally
// compiled and enforced locally because its verdict gates nothing else
// in the pipeline and would otherwise go unchecked.

const classifySchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["output", "type", "level"],
  "properties": {
    "output": {"const": "classify"},
    "type": {"enum": ["bug", "chore", "feature"]},
    "level": {"enum": ["simple", "average", "complex", "critical"]}
  }
}`

const planSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["plan", "summary"],
  "properties": {
    "output": {"type": "string"},
    "plan": {"type": "string"},
    "summary": {"type": "string"}
  }
}`

const implementSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["status", "files_modified", "git_diff_stat", "output", "summary"],
  "properties": {
    "status": {"type": "string"},
    "files_modified": {"type": "array", "items": {"type": "string"}},
    "git_diff_stat": {"type": "string"},
    "output": {"type": "string"},
    "summary": {"type": "string"}
  }
}`

const composeRequestSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "summary"],
  "properties": {
    "title": {"type": "string"},
    "summary": {"type": "string"}
  }
}`

const composeCommitsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["messages"],
  "properties": {
    "messages": {"type": "array", "items": {"type": "string"}}
  }
}`

const acceptanceSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["requirements", "unmet_blocking_requirements", "status"],
  "properties": {
    "requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["requirement", "met"],
        "properties": {
          "requirement": {"type": "string"},
          "met": {"type": "boolean"},
          "blocking": {"type": "boolean"},
          "notes": {"type": "string"}
        }
      }
    },
    "unmet_blocking_requirements": {
      "type": "array",
      "items": {"type": "string"}
    },
    "status": {"enum": ["pass", "fail", "partial"]}
  }
}`

var acceptanceSchema = mustCompileSchema("acceptance.json", acceptanceSchemaJSON)

func mustCompileSchema(name, text string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		panic(fmt.Sprintf("parse schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return sch
}
