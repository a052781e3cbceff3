// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User Registration",
                "parameters": [
                    {"in": "body", "name": "register", "required": true, "schema": {"$ref": "#/definitions/v1.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/v1.RegisterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User Login",
                "parameters": [
                    {"in": "body", "name": "login", "required": true, "schema": {"$ref": "#/definitions/v1.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/v1.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current User",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/v1.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/cv": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Get CV",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Create or update CV",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            }
        },
        "/cv/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Upload CV for parsing",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            }
        },
        "/cv/validate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Validate CV document",
                "parameters": [
                    {"in": "body", "name": "cv", "required": true, "schema": {"$ref": "#/definitions/domain.CV"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/v1.CVValidResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/search": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Search candidates",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            }
        },
        "/search/saved": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Get saved searches",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Save search",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            }
        },
        "/users/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "User profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update user profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.HealthStatus"}}}
            }
        }
    },
    "definitions": {
        "v1.RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6, "maxLength": 72, "description": "at most 72 bytes once UTF-8 encoded"},
                "role": {"type": "string", "enum": ["CANDIDATE", "RECRUITER"]}
            }
        },
        "v1.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "v1.RegisteredUser": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "v1.RegisterResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/v1.RegisteredUser"},
                "token": {"type": "string"}
            }
        },
        "v1.LoginResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.AuthUser"},
                "token": {"type": "string"}
            }
        },
        "v1.CurrentUser": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "createdAt": {"type": "string"},
                "profile": {"$ref": "#/definitions/domain.Profile"}
            }
        },
        "v1.MeResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/v1.CurrentUser"}}
        },
        "v1.CVValidResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "cv": {"$ref": "#/definitions/domain.CV"}
            }
        },
        "domain.AuthUser": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "domain.Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "fullName": {"type": "string"},
                "phone": {"type": "string"},
                "location": {"type": "string"},
                "headline": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.CV": {
            "type": "object",
            "required": ["personalDetails"],
            "properties": {
                "status": {"type": "string", "enum": ["DRAFT", "PUBLISHED", "PRIVATE"]},
                "title": {"type": "string"},
                "summary": {"type": "string"},
                "personalDetails": {"type": "object"},
                "education": {"type": "array", "items": {"type": "object"}},
                "experience": {"type": "array", "items": {"type": "object"}},
                "skills": {"type": "array", "items": {"type": "object"}},
                "certifications": {"type": "array", "items": {"type": "object"}},
                "languages": {"type": "array", "items": {"type": "object"}}
            }
        },
        "domain.HealthStatus": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "database": {"type": "string"},
                "redis": {"type": "string"}
            }
        },
        "response.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "response.ErrorBody": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "statusCode": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}},
                "stack": {"type": "string"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/response.ErrorBody"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CV Platform API",
	Description:      "Registration, login and role-gated routes for the standardized CV platform.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
