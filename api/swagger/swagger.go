package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Supervision API",
        "description": "Allocation and workflow engine for academic supervision",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and account access"},
        {"name": "Periods", "description": "Supervision period lifecycle"},
        {"name": "Deadlines", "description": "Per-period artifact cutoffs"},
        {"name": "Capacities", "description": "Per-period supervision slot grants"},
        {"name": "Topics", "description": "Pre-thesis topic catalog"},
        {"name": "Applications", "description": "Student topic applications"},
        {"name": "Assignments", "description": "Directed and random allocation"},
        {"name": "Cases", "description": "Accepted pre-thesis and thesis cases"},
        {"name": "Submissions", "description": "Append-only milestone artifacts"},
        {"name": "Evaluations", "description": "Grading, defense and roles"},
        {"name": "Enrollments", "description": "Per-period registration ledger"},
        {"name": "Notifications", "description": "Stored notification feed"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/periods": {
            "get": {
                "tags": ["Periods"],
                "summary": "List periods",
                "parameters": [
                    {"name": "isActive", "in": "query", "type": "boolean"},
                    {"name": "isPublished", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Periods"],
                "summary": "Create period",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePeriodRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/periods/active": {
            "get": {
                "tags": ["Periods"],
                "summary": "Get active period",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active period"}
                }
            }
        },
        "/periods/{id}/deadlines": {
            "get": {
                "tags": ["Deadlines"],
                "summary": "List deadlines",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Deadlines"],
                "summary": "Set deadline",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetDeadlineRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/capacities": {
            "get": {
                "tags": ["Capacities"],
                "summary": "List capacity grants",
                "parameters": [
                    {"name": "periodId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Capacities"],
                "summary": "Grant capacity",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GrantCapacityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/topics": {
            "get": {
                "tags": ["Topics"],
                "summary": "List topics",
                "parameters": [
                    {"name": "periodId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Topics"],
                "summary": "Create topic",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTopicRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications": {
            "post": {
                "tags": ["Applications"],
                "summary": "Apply to topic",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already registered or duplicate application"}
                }
            }
        },
        "/applications/{id}/approve": {
            "post": {
                "tags": ["Applications"],
                "summary": "Approve application",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exhausted"}
                }
            }
        },
        "/assignments/directed": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Directed assignment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DirectedAssignmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exhausted"}
                }
            }
        },
        "/assignments/random": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Random batch assignment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RandomAssignmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pool smaller than batch"}
                }
            }
        },
        "/cases/{kind}": {
            "get": {
                "tags": ["Cases"],
                "summary": "List cases",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["pre-thesis", "thesis"]},
                    {"name": "periodId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{kind}/{id}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit artifact",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["pre-thesis", "thesis"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Deadline passed"}
                }
            },
            "get": {
                "tags": ["Submissions"],
                "summary": "Latest submission per artifact type",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["pre-thesis", "thesis"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{kind}/{id}/grades": {
            "post": {
                "tags": ["Evaluations"],
                "summary": "Record grade",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["pre-thesis", "thesis"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Caller holds no evaluation role"}
                }
            }
        },
        "/theses/{id}/defense": {
            "put": {
                "tags": ["Evaluations"],
                "summary": "Schedule defense",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetDefenseDateRequest"}}
                ],
                "responses": {
                    "204": {"description": "Scheduled"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "periodId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "isRegistered", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreatePeriodRequest": {
            "type": "object",
            "required": ["name", "start_date", "end_date"],
            "properties": {
                "name": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"}
            }
        },
        "SetDeadlineRequest": {
            "type": "object",
            "required": ["artifact", "due_at"],
            "properties": {
                "artifact": {"type": "string"},
                "due_at": {"type": "string", "format": "date-time"}
            }
        },
        "GrantCapacityRequest": {
            "type": "object",
            "required": ["teacher_id", "period_id"],
            "properties": {
                "teacher_id": {"type": "string"},
                "period_id": {"type": "string"},
                "pre_thesis_slots": {"type": "integer"},
                "thesis_slots": {"type": "integer"}
            }
        },
        "CreateTopicRequest": {
            "type": "object",
            "required": ["period_id", "title", "slots"],
            "properties": {
                "period_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "slots": {"type": "integer"},
                "min_gpa": {"type": "number"},
                "min_credits": {"type": "integer"}
            }
        },
        "ApplyRequest": {
            "type": "object",
            "required": ["topic_id"],
            "properties": {
                "topic_id": {"type": "string"},
                "note": {"type": "string"}
            }
        },
        "DirectedAssignmentRequest": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"},
                "topic_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "RandomAssignmentRequest": {
            "type": "object",
            "required": ["period_id", "kind", "student_ids"],
            "properties": {
                "period_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["PRE_THESIS", "THESIS"]},
                "student_ids": {"type": "array", "items": {"type": "string"}},
                "seed": {"type": "integer"},
                "title": {"type": "string"}
            }
        },
        "SubmitRequest": {
            "type": "object",
            "required": ["kind", "file_ref"],
            "properties": {
                "kind": {"type": "string", "enum": ["REPORT", "PROJECT", "PRESENTATION"]},
                "file_ref": {"type": "string"}
            }
        },
        "RecordGradeRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "number"},
                "feedback": {"type": "string"}
            }
        },
        "SetDefenseDateRequest": {
            "type": "object",
            "required": ["defense_date"],
            "properties": {
                "defense_date": {"type": "string", "format": "date-time"}
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
