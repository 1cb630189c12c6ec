package handler

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const weightsSchema = `{
	"type": "object",
	"properties": {
		"skills":     {"type": "number", "minimum": 0},
		"experience": {"type": "number", "minimum": 0},
		"education":  {"type": "number", "minimum": 0},
		"relevance":  {"type": "number", "minimum": 0}
	},
	"additionalProperties": false
}`

const scoreRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["job_description", "resumes"],
	"properties": {
		"job_id":          {"type": "string", "maxLength": 100},
		"job_description": {"type": "string", "minLength": 1},
		"evaluated_at":    {"type": "string"},
		"weights": ` + weightsSchema + `,
		"resumes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["text"],
				"properties": {
					"id":       {"type": "string", "maxLength": 64},
					"filename": {"type": "string", "maxLength": 255},
					"text":     {"type": "string"}
				}
			}
		}
	}
}`

const analyzeRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["text"],
	"properties": {
		"text":         {"type": "string", "minLength": 1},
		"evaluated_at": {"type": "string"}
	}
}`

var (
	scoreSchema   = mustSchema(scoreRequestSchema)
	analyzeSchema = mustSchema(analyzeRequestSchema)
	weightSchema  = mustSchema(weightsSchema)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("编译JSON Schema失败: %v", err))
	}
	return schema
}

// validateJSON 按 schema 校验请求体，返回全部校验错误
func validateJSON(schema *gojsonschema.Schema, body []byte) []string {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []string{"请求体为空"}
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return []string{fmt.Sprintf("请求体不是合法JSON: %v", err)}
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}
