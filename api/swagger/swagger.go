package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DriveMIS API",
        "description": "Driving school administration backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and account info"},
        {"name": "Branches", "description": "Branch registry"},
        {"name": "Courses", "description": "Course catalogue and categories"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Instructors", "description": "Instructor roster"},
        {"name": "Vehicles", "description": "Vehicle fleet"},
        {"name": "Classrooms", "description": "Classroom registry"},
        {"name": "Enrollments", "description": "Student course enrollments"},
        {"name": "Sessions", "description": "Session scheduling and lifecycle"},
        {"name": "Availability", "description": "Free resources per time window"},
        {"name": "Recommendations", "description": "Ranked scheduling suggestions"},
        {"name": "Utilization", "description": "Resource utilization reports"}
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
                    "200": {"description": "Ready"}
                }
            }
        }
    },
    "definitions": {
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
