package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Block Scheduler API",
        "description": "Assigns course sections to blocks, rooms and lecturers and enrols students.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "ScheduleRuns", "description": "Scheduling runs and their timetables"},
        {"name": "Catalog", "description": "Catalog validation"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check against postgres and redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Metrics"}}
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Aggregated process metrics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/catalog/validate": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Validate a catalog",
                "consumes": ["application/json", "application/yaml"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/Catalog"}}
                ],
                "responses": {
                    "200": {"description": "Validation report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Undecodable body", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Malformed catalog", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule-runs": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "List schedule runs",
                "parameters": [
                    {"in": "query", "name": "status", "type": "string", "enum": ["QUEUED", "RUNNING", "FINISHED", "FAILED"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["ScheduleRuns"],
                "summary": "Submit a catalog for scheduling",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "mode", "type": "string", "enum": ["async", "sync"]},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateRunRequest"}}
                ],
                "responses": {
                    "201": {"description": "Finished synchronous run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Malformed catalog", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule-runs/{id}": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Get schedule run status",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["ScheduleRuns"],
                "summary": "Delete a schedule run and its exports",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Run is still running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule-runs/{id}/assignment": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Course sections of a finished run",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schedule-runs/{id}/students": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Student timetables of a finished run",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schedule-runs/{id}/students/{studentId}": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Timetable of one student",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "path", "name": "studentId", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schedule-runs/{id}/lecturers": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Lecturer timetables of a finished run",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schedule-runs/{id}/statistics": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Fulfilment statistics of a finished run",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run has not finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule-runs/{id}/warnings": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Data-quality warnings of a finished run",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/schedule-runs/{id}/exports": {
            "post": {
                "tags": ["ScheduleRuns"],
                "summary": "Render a view of a finished run",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {"201": {"description": "Signed download link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/downloads/{token}": {
            "get": {
                "tags": ["ScheduleRuns"],
                "summary": "Download an export via signed token",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"in": "path", "name": "token", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Catalog": {
            "type": "object",
            "properties": {
                "blocks": {"type": "array", "items": {"type": "string"}},
                "courses": {"type": "array", "items": {"type": "object"}},
                "lecturers": {"type": "array", "items": {"type": "object"}},
                "rooms": {"type": "array", "items": {"type": "object"}},
                "students": {"type": "array", "items": {"type": "object"}}
            }
        },
        "RunOptions": {
            "type": "object",
            "properties": {
                "seed": {"type": "integer"},
                "tieBreak": {"type": "string", "enum": ["random", "first"]},
                "refinement": {"type": "string", "enum": ["none", "annealing"]},
                "maxIterations": {"type": "integer"},
                "initialTemperature": {"type": "number"},
                "coolingRate": {"type": "number"},
                "collisionPolicy": {"type": "string", "enum": ["first_wins", "last_wins"]},
                "distributionPolicy": {"type": "string", "enum": ["shared", "round_robin"]},
                "preferConflictFree": {"type": "boolean"}
            }
        },
        "CreateRunRequest": {
            "type": "object",
            "required": ["catalog"],
            "properties": {
                "catalog": {"$ref": "#/definitions/Catalog"},
                "options": {"$ref": "#/definitions/RunOptions"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["view", "format"],
            "properties": {
                "view": {"type": "string", "enum": ["students", "lecturers", "assignment"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
