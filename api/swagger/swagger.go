package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Analytics API",
        "description": "Admin learning statistics derived from the platform document store",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "LearningStats", "description": "Aggregated learning statistics for admins"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Document store unreachable"}
                }
            }
        },
        "/admin/learning-stats": {
            "get": {
                "tags": ["LearningStats"],
                "summary": "Learning statistics report",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "502": {"description": "Analytics source unavailable"}
                }
            }
        },
        "/admin/learning-stats/refresh": {
            "post": {
                "tags": ["LearningStats"],
                "summary": "Recompute the report, bypassing cache",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"},
                    "502": {"description": "Analytics source unavailable"}
                }
            }
        },
        "/admin/learning-stats/export": {
            "get": {
                "tags": ["LearningStats"],
                "summary": "Download the report as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "400": {"description": "Unknown format"},
                    "401": {"description": "Unauthorized"}
                }
            }
        }
    },
    "definitions": {
        "CourseCompletion": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "title": {"type": "string"},
                "total_lessons": {"type": "integer"},
                "total_students": {"type": "integer"},
                "completed_students": {"type": "integer"},
                "avg_progress": {"type": "number"}
            }
        },
        "DropOffPoint": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "course_title": {"type": "string"},
                "lesson_title": {"type": "string"},
                "lesson_index": {"type": "integer"},
                "total_lessons": {"type": "integer"},
                "students_reached_prev": {"type": "integer"},
                "students_reached_here": {"type": "integer"},
                "drop_off_percent": {"type": "integer"}
            }
        },
        "LearningStatsReport": {
            "type": "object",
            "properties": {
                "report_id": {"type": "string"},
                "generated_at": {"type": "string", "format": "date-time"},
                "overall_completion_rate": {"type": "number"},
                "course_completion_rates": {"type": "array", "items": {"$ref": "#/definitions/CourseCompletion"}},
                "average_active_days": {"type": "number"},
                "active_students_trend": {"type": "array", "items": {"type": "object"}},
                "most_engaging_lessons": {"type": "array", "items": {"type": "object"}},
                "drop_off_points": {"type": "array", "items": {"$ref": "#/definitions/DropOffPoint"}},
                "top_active_students": {"type": "array", "items": {"type": "object"}}
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
                "data": {"$ref": "#/definitions/LearningStatsReport"},
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
