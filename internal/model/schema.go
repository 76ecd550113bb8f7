package model

// artifactSchema is the JSON schema every artifact must satisfy, whatever
// its on-disk encoding.
const artifactSchema = `{
  "type": "object",
  "required": ["kind", "input", "weights"],
  "properties": {
    "name": {"type": "string"},
    "description": {"type": "string"},
    "kind": {"enum": ["logistic"]},
    "input": {
      "type": "object",
      "required": ["width", "height", "grid"],
      "properties": {
        "width": {"type": "integer", "minimum": 1, "maximum": 4096},
        "height": {"type": "integer", "minimum": 1, "maximum": 4096},
        "grid": {"type": "integer", "minimum": 1, "maximum": 64}
      }
    },
    "weights": {"type": "array", "minItems": 1, "items": {"type": "number"}},
    "bias": {"type": "number"},
    "threshold": {"type": "number", "minimum": 0, "maximum": 1},
    "positive_below": {"type": "boolean"},
    "labels": {
      "type": "object",
      "properties": {
        "positive": {"type": "string", "minLength": 1},
        "negative": {"type": "string", "minLength": 1}
      }
    }
  }
}`
