package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Class Points API",
        "description": "Weekly class points leaderboard",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Leaderboard", "description": "Weekly class rankings and summaries"},
        {"name": "Activity", "description": "Event outcomes and task submissions"},
        {"name": "Exports", "description": "Asynchronous CSV and PDF leaderboard exports"},
        {"name": "Metrics", "description": "Service counters"}
    ],
    "paths": {
        "/leaderboard": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Weekly class leaderboard",
                "description": "Classes whose data cannot be read are listed under failures instead of being ranked.",
                "parameters": [
                    {"name": "week", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "class", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/classes/{id}": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Weekly summary for one class",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "week", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Malformed record or unknown outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Submission store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/classes/{id}/days": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Per-day breakdown with per-day errors",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "week", "in": "query", "type": "string", "format": "date", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/classes/{id}/top": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Top students of a class",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "week", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "n", "in": "query", "type": "integer", "default": 3}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/outcomes": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Outcome catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events": {
            "post": {
                "tags": ["Activity"],
                "summary": "Record an outcome for several students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error or unknown outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions": {
            "post": {
                "tags": ["Activity"],
                "summary": "Record one task submission",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a leaderboard export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Cache, store and aggregation counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EventRequest": {
            "type": "object",
            "required": ["category", "classId", "date", "outcome", "studentIds"],
            "properties": {
                "category": {"type": "string", "enum": ["homework", "quiz", "assignment", "participation", "noncurr-individual", "noncurr-team"]},
                "classId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "subject": {"type": "string"},
                "outcome": {"type": "string"},
                "studentIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SubmissionRequest": {
            "type": "object",
            "required": ["studentId", "classId", "date", "taskId", "category", "status"],
            "properties": {
                "studentId": {"type": "string"},
                "classId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "taskId": {"type": "string"},
                "category": {"type": "string"},
                "status": {"type": "string", "enum": ["completed", "incomplete", "absent", "pending"]},
                "approved": {"type": "boolean"},
                "submittedAt": {"type": "string", "format": "date-time"},
                "quizScore": {"type": "number", "minimum": 0, "maximum": 100},
                "outcome": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["weekStart", "format"],
            "properties": {
                "weekStart": {"type": "string", "format": "date"},
                "classIds": {"type": "array", "items": {"type": "string"}},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
