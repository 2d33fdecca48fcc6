package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Smart Allotment API",
        "description": "Room allotment engine and booking ledger",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Allotment", "description": "Bulk greedy room allotment"},
        {"name": "Ledger", "description": "Direct bookings, advisory requests and vacancy"},
        {"name": "Exports", "description": "Asynchronous schedule exports"},
        {"name": "Ops", "description": "Service metrics"}
    ],
    "paths": {
        "/run-allotment": {
            "post": {
                "tags": ["Allotment"],
                "summary": "Run a bulk room allotment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RunAllotmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Assignments and unassigned outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/run-allotment/cache": {
            "delete": {
                "tags": ["Allotment"],
                "summary": "Drop cached allotment results (admin)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Purged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings": {
            "post": {
                "tags": ["Ledger"],
                "summary": "Book a room directly (admin or faculty)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Room taken, with vacant suggestions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Slot already started", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Ledger"],
                "summary": "Remove every booking (admin)",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cleared", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}": {
            "delete": {
                "tags": ["Ledger"],
                "summary": "Cancel a booking (admin or faculty)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "role", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Ledger"],
                "summary": "List queued advisory requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Ledger"],
                "summary": "Queue an advisory booking request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Queued, room free", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued, room taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Ledger"],
                "summary": "View bookings with the room catalog",
                "parameters": [
                    {"name": "roomId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/vacant": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Rooms free for a whole window",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "start", "in": "query", "required": true, "type": "string"},
                    {"name": "end", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a schedule export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Schedule export status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Ops"],
                "summary": "JSON snapshot of service metrics (admin)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Room": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "capacity": {"type": "integer"},
                "gender": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AllotmentRequest": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"},
                "date": {"type": "string", "example": "2025-03-10"},
                "start": {"type": "string", "example": "09:00"},
                "end": {"type": "string", "example": "10:00"},
                "attendees": {"type": "integer"},
                "userType": {"type": "string"},
                "prefType": {"type": "string"},
                "gender": {"type": "string"},
                "need": {"type": "string", "example": "projector,audio"}
            }
        },
        "AllotmentConstraints": {
            "type": "object",
            "properties": {
                "minGap": {"type": "integer"},
                "allowOver": {"type": "boolean"},
                "weights": {"type": "object", "additionalProperties": {"type": "integer"}}
            }
        },
        "RunAllotmentRequest": {
            "type": "object",
            "required": ["rooms", "requests"],
            "properties": {
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/Room"}},
                "requests": {"type": "array", "items": {"$ref": "#/definitions/AllotmentRequest"}},
                "constraints": {"$ref": "#/definitions/AllotmentConstraints"}
            }
        },
        "BookSlotRequest": {
            "type": "object",
            "required": ["room_id", "user_name", "date", "start_time", "end_time"],
            "properties": {
                "room_id": {"type": "string"},
                "user_role": {"type": "string", "enum": ["admin", "faculty", "student"]},
                "user_name": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "SubmitRequestRequest": {
            "type": "object",
            "required": ["room_id", "user_name", "date", "start_time", "end_time"],
            "properties": {
                "room_id": {"type": "string"},
                "user_name": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "room_id": {"type": "string"}
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
