package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "GymFlow API",
        "description": "Fitness class booking, waitlist and membership lifecycle API",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Classes", "description": "Scheduled class catalog and availability"},
        {"name": "Bookings", "description": "Class enrollment and cancellation"},
        {"name": "Waitlist", "description": "FIFO waitlist and promotion"},
        {"name": "Membership", "description": "Membership status lifecycle"}
    ],
    "paths": {
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List scheduled classes",
                "parameters": [
                    {"name": "trainerId", "in": "query", "type": "integer"},
                    {"name": "roomId", "in": "query", "type": "integer"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Schedule a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Trainer unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get a scheduled class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Classes"],
                "summary": "Reschedule or reassign a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateClassRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/availability": {
            "get": {
                "tags": ["Classes"],
                "summary": "Advisory seat availability snapshot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/waitlist": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "List waiting entries of a class in queue order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/bookings/cancel": {
            "put": {
                "tags": ["Classes"],
                "summary": "Bulk-cancel all enrolled bookings of a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{id}/roster/export": {
            "get": {
                "tags": ["Classes"],
                "summary": "Export the enrolled roster as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings",
                "parameters": [
                    {"name": "memberId", "in": "query", "type": "integer"},
                    {"name": "classId", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a member into a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Business rule violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/eligibility": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Advisory booking eligibility check",
                "parameters": [
                    {"name": "memberId", "in": "query", "required": true, "type": "integer"},
                    {"name": "classId", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Get booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/cancel": {
            "put": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Past cancellation deadline", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/re-enroll": {
            "put": {
                "tags": ["Bookings"],
                "summary": "Re-enroll a cancelled booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Business rule violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waitlist": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Join a class waitlist",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinWaitlistRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Business rule violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waitlist/{id}": {
            "delete": {
                "tags": ["Waitlist"],
                "summary": "Remove a waiting entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waitlist/{id}/position": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Get the 1-based queue position of a waiting entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waitlist/expire": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Expire waiting entries of classes that already started",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/membership/lifecycle/run": {
            "post": {
                "tags": ["Membership"],
                "summary": "Run one membership lifecycle sweep",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateClassRequest": {
            "type": "object",
            "required": ["class_type_id", "trainer_id", "room_id", "start_time"],
            "properties": {
                "class_type_id": {"type": "integer"},
                "trainer_id": {"type": "integer"},
                "room_id": {"type": "integer"},
                "start_time": {"type": "string", "format": "date-time"}
            }
        },
        "UpdateClassRequest": {
            "type": "object",
            "required": ["class_type_id", "trainer_id", "room_id", "start_time"],
            "properties": {
                "class_type_id": {"type": "integer"},
                "trainer_id": {"type": "integer"},
                "room_id": {"type": "integer"},
                "start_time": {"type": "string", "format": "date-time"}
            }
        },
        "CreateBookingRequest": {
            "type": "object",
            "required": ["member_id", "class_id"],
            "properties": {
                "member_id": {"type": "integer"},
                "class_id": {"type": "integer"}
            }
        },
        "JoinWaitlistRequest": {
            "type": "object",
            "required": ["member_id", "class_id"],
            "properties": {
                "member_id": {"type": "integer"},
                "class_id": {"type": "integer"}
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
