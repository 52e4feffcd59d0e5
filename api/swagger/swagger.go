package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Scheduling API",
        "description": "Class booking, conflict detection, teacher reassignment and schedule request approval.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Bookings", "description": "Class bookings and conflict detection"},
        {"name": "Reassignments", "description": "Teacher substitution"},
        {"name": "ScheduleRequests", "description": "Teacher-submitted booking proposals"},
        {"name": "Reports", "description": "Schedule exports"},
        {"name": "Notifications", "description": "Recent announcements"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
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
                "tags": ["Auth"],
                "summary": "Return the authenticated user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings",
                "parameters": [
                    {"name": "course", "in": "query", "type": "string"},
                    {"name": "venue", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"},
                    {"name": "sortBy", "in": "query", "type": "string"},
                    {"name": "sortOrder", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Create booking",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Venue or teacher conflict"}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Get booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Bookings"],
                "summary": "Update booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Venue conflict"}
                }
            },
            "delete": {
                "tags": ["Bookings"],
                "summary": "Delete booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/bookings/{id}/examiner": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Assign a random eligible examiner",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignExaminerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No eligible teachers"}
                }
            }
        },
        "/bookings/{id}/cancel-reassign": {
            "post": {
                "tags": ["Reassignments"],
                "summary": "Hand the booking to a substitute or cancel it",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/schedules/{id}/reassign": {
            "post": {
                "tags": ["Reassignments"],
                "summary": "Reassign the schedule's teacher to a substitute",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"},
                    "409": {"description": "No available teacher"}
                }
            }
        },
        "/schedule-requests": {
            "post": {
                "tags": ["ScheduleRequests"],
                "summary": "Submit a schedule request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule-requests/pending": {
            "get": {
                "tags": ["ScheduleRequests"],
                "summary": "List pending requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule-requests/{id}/process": {
            "post": {
                "tags": ["ScheduleRequests"],
                "summary": "Approve or reject a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProcessScheduleRequestPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Venue conflict, request stays pending"}
                }
            }
        },
        "/reports/bookings.csv": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the filtered schedule as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/reports/bookings.pdf": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the filtered schedule as PDF",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List recent notifications",
                "parameters": [
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
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateBookingRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "venue": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "description": {"type": "string"}
            },
            "required": ["course_id", "teacher_id", "date", "start_time", "end_time", "venue", "duration_minutes"]
        },
        "UpdateBookingRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "venue": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "description": {"type": "string"}
            }
        },
        "AssignExaminerRequest": {
            "type": "object",
            "properties": {
                "course_name": {"type": "string"},
                "excluded_teacher_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["course_name"]
        },
        "CreateScheduleRequestRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "course_id": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "venue": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "description": {"type": "string"}
            },
            "required": ["teacher_id", "course_id", "date", "start_time", "end_time", "venue", "duration_minutes"]
        },
        "ProcessScheduleRequestPayload": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]}
            },
            "required": ["action"]
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
                "pagination": {"$ref": "#/definitions/Pagination"}
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
