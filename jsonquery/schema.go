package jsonquery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

// getQuerySchema describes the JSON form of a GetQuery. Filter members are
// checked per variant by filter.Parse; the schema covers structure.
const getQuerySchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "limit":  {"type": "integer", "minimum": 0},
    "offset": {"type": "integer", "minimum": 0},
    "sortOrder": {
      "oneOf": [
        {"type": "array", "items": {"type": "string", "pattern": "^[+-]?\\s*\\S"}},
        {"type": "string"}
      ]
    },
    "filter": {"oneOf": [{"type": "null"}, {"$ref": "#/definitions/filter"}]},
    "fields": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "min": {"type": "string"},
    "max": {"type": "string"}
  },
  "definitions": {
    "filter": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {
          "enum": ["logOp", "boolean", "null", "string", "containsString", "like", "stringEnum",
                   "stringMap", "stringRange", "longEnum", "longRange", "doubleRange", "dateRange"]
        },
        "op": {"type": "string"},
        "operands": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/filter"}},
        "field": {"type": "string", "minLength": 1},
        "key": {"type": "string"},
        "pattern": {"type": "string"},
        "isNull": {"type": "boolean"},
        "values": {"type": "array"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(getQuerySchema))
	})
	return compiledSchema, schemaErr
}

// ValidateJSON checks data against the GetQuery JSON schema
func ValidateJSON(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return jqerrors.Wrap(jqerrors.ErrSchema, "invalid json schema", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return jqerrors.Wrap(jqerrors.ErrParse, "schema validation error", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return jqerrors.New(jqerrors.ErrSchema, fmt.Sprintf("get query invalid against schema: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// ParseGetQuery validates data against the schema and decodes it
func ParseGetQuery(data []byte) (*GetQuery, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	return FromJSON(data)
}
