// Package docs registers the predictd Swagger document with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "predictd maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness message",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness of the required models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.PredictResponse"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List models on disk and their registry state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Registry, staging and worker pool status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Recent predictions",
                "parameters": [{"type": "integer", "description": "Maximum entries (default 50)", "name": "limit", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}},
                    "404": {"description": "History disabled", "schema": {"$ref": "#/definitions/types.PredictResponse"}}
                }
            }
        },
        "/predict": {
            "post": {
                "description": "With a \"model\" field the request is a single prediction on \"file\". Otherwise \"lidah_image\" and/or \"kuku_image\" are screened; at least one is required.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Predict with a named model, or screen tongue and/or nail images",
                "parameters": [
                    {"type": "string", "description": "Model id for a single prediction", "name": "model", "in": "formData"},
                    {"type": "file", "description": "Image for a single prediction", "name": "file", "in": "formData"},
                    {"type": "file", "description": "Tongue image", "name": "lidah_image", "in": "formData"},
                    {"type": "file", "description": "Nail image", "name": "kuku_image", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analysisResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.PredictResponse"}}
                }
            }
        },
        "/predict/lidah": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Screen a tongue image",
                "parameters": [{"type": "file", "description": "Tongue image", "name": "lidah_image", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/analysisResponse"}}}
            }
        },
        "/predict/kuku": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Screen a nail image",
                "parameters": [{"type": "file", "description": "Nail image", "name": "kuku_image", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/analysisResponse"}}}
            }
        },
        "/predict/both": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Screen a tongue and a nail image together",
                "parameters": [
                    {"type": "file", "description": "Tongue image", "name": "lidah_image", "in": "formData", "required": true},
                    {"type": "file", "description": "Nail image", "name": "kuku_image", "in": "formData", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/analysisResponse"}}}
            }
        },
        "/predict/{model}": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["predict"],
                "summary": "Predict with one model",
                "parameters": [
                    {"type": "string", "description": "Model id", "name": "model", "in": "path", "required": true},
                    {"type": "file", "description": "Image (JPEG, PNG, GIF, BMP, WebP or TIFF)", "name": "file", "in": "formData", "required": true},
                    {"type": "number", "description": "Decision threshold override in (0,1)", "name": "threshold", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/predictionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.PredictResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.PredictResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.PredictResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.PredictResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.PredictResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.PredictResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "error"},
                "result": {"type": "object"},
                "error": {"type": "string", "example": "model not found: demo"}
            }
        },
        "predictionResponse": {
            "allOf": [
                {"$ref": "#/definitions/types.PredictResponse"},
                {"type": "object", "properties": {"result": {"$ref": "#/definitions/types.Prediction"}}}
            ]
        },
        "analysisResponse": {
            "allOf": [
                {"$ref": "#/definitions/types.PredictResponse"},
                {"type": "object", "properties": {"result": {"$ref": "#/definitions/types.Analysis"}}}
            ]
        },
        "types.Prediction": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "lidah_model"},
                "label": {"type": "string", "example": "prediabet"},
                "positive": {"type": "boolean", "example": true},
                "score": {"type": "number", "example": 0.18},
                "confidence": {"type": "number", "example": 0.82},
                "threshold": {"type": "number", "example": 0.5},
                "duration_ms": {"type": "integer", "example": 12}
            }
        },
        "types.Detection": {
            "type": "object",
            "properties": {
                "detection_type": {"type": "string", "enum": ["lidah", "kuku"]},
                "is_diabetic": {"type": "boolean"},
                "confidence": {"type": "number"},
                "label": {"type": "string"}
            }
        },
        "types.Analysis": {
            "type": "object",
            "properties": {
                "risk_level": {"type": "string", "enum": ["tinggi", "sedang", "rendah"]},
                "risk_percentage": {"type": "number", "example": 57.3},
                "lidah_result": {"$ref": "#/definitions/types.Detection"},
                "kuku_result": {"$ref": "#/definitions/types.Detection"},
                "risk_factors_identified": {"type": "array", "items": {"type": "string"}},
                "recommendation": {"type": "string"}
            }
        },
        "types.ModelStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "lidah_model"},
                "state": {"type": "string", "enum": ["unloaded", "loading", "ready", "failed"]},
                "kind": {"type": "string", "example": "logistic"},
                "input_width": {"type": "integer"},
                "input_height": {"type": "integer"},
                "loaded_at_unix": {"type": "integer"},
                "last_used_unix": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelStatus"}}}
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "message": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelStatus"}},
                "active_uploads": {"type": "integer"},
                "workers": {"type": "integer"},
                "queue_len": {"type": "integer"},
                "max_queue_depth": {"type": "integer"},
                "inflight": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "load_failures_total": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.HistoryEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "request_id": {"type": "string"},
                "model_id": {"type": "string"},
                "status": {"type": "string"},
                "label": {"type": "string"},
                "confidence": {"type": "number"},
                "error": {"type": "string"},
                "created_at_unix": {"type": "integer"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {"entries": {"type": "array", "items": {"$ref": "#/definitions/types.HistoryEntry"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "predictd API",
	Description:      "Image model serving: per-model predictions and tongue/nail diabetes screening.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
