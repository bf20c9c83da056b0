// Package docs は /swagger で配信する API 定義（swag 形式で登録する）。
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in (students by institutional email, staff by password)",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "token and identity"}, "401": {"description": "UNAUTHENTICATED"}}
            }
        },
        "/accounts": {
            "get": {"tags": ["auth"], "summary": "List staff accounts (admin)", "responses": {"200": {"description": "accounts"}}},
            "post": {"tags": ["auth"], "summary": "Register a staff account (admin)", "responses": {"201": {"description": "created"}, "409": {"description": "CONFLICT"}}}
        },
        "/accounts/{email}": {
            "delete": {
                "tags": ["auth"], "summary": "Delete a staff account (admin)",
                "parameters": [{"in": "path", "name": "email", "type": "string", "required": true}],
                "responses": {"204": {"description": "deleted"}, "404": {"description": "NOT_FOUND"}}
            }
        },
        "/components": {
            "get": {"tags": ["inventory"], "summary": "List components with available counts", "responses": {"200": {"description": "components"}}},
            "post": {
                "tags": ["inventory"], "summary": "Create a component (technician)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateComponentRequest"}}],
                "responses": {"201": {"description": "created"}, "400": {"description": "INVALID_ARGUMENT"}, "409": {"description": "CONFLICT"}}
            }
        },
        "/components/{name}": {
            "put": {
                "tags": ["inventory"], "summary": "Manually set total and working counts (technician)",
                "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}],
                "responses": {"200": {"description": "updated"}, "404": {"description": "NOT_FOUND"}}
            }
        },
        "/requests": {
            "get": {"tags": ["requests"], "summary": "List all requests (staff)", "responses": {"200": {"description": "requests"}}},
            "post": {
                "tags": ["requests"], "summary": "Submit a borrow batch",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}],
                "responses": {"201": {"description": "batch created"}, "409": {"description": "INSUFFICIENT_STOCK"}}
            }
        },
        "/requests/mine": {
            "get": {"tags": ["requests"], "summary": "Requests of the caller", "responses": {"200": {"description": "requests"}}}
        },
        "/requests/{id}": {
            "get": {
                "tags": ["requests"], "summary": "Get one request",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "request"}, "404": {"description": "NOT_FOUND"}}
            }
        },
        "/requests/{id}/issue": {
            "post": {"tags": ["requests"], "summary": "Issue an approved request (technician)", "responses": {"200": {"description": "issued"}, "409": {"description": "INSUFFICIENT_STOCK or CONFLICT"}}}
        },
        "/requests/{id}/collect": {
            "post": {"tags": ["requests"], "summary": "Collect an issued request (technician)", "responses": {"200": {"description": "returned"}}}
        },
        "/requests/{id}/cancel": {
            "post": {"tags": ["requests"], "summary": "Cancel a request", "responses": {"200": {"description": "cancelled"}, "403": {"description": "FORBIDDEN"}}}
        },
        "/requests/{id}/purchased": {
            "post": {"tags": ["requests"], "summary": "Mark a purchase request bought (technician)", "responses": {"200": {"description": "purchased"}}}
        },
        "/batches": {
            "get": {
                "tags": ["requests"], "summary": "List batches, optionally by status",
                "parameters": [{"in": "query", "name": "status", "type": "string"}],
                "responses": {"200": {"description": "batches"}}
            }
        },
        "/batches/{batch_id}/mentor": {
            "post": {"tags": ["approvals"], "summary": "Mentor decision from the dashboard", "responses": {"200": {"description": "decided"}}}
        },
        "/batches/{batch_id}/hod": {
            "post": {"tags": ["approvals"], "summary": "HOD decision", "responses": {"200": {"description": "decided"}, "409": {"description": "CONFLICT"}}}
        },
        "/batches/{batch_id}/incharge": {
            "post": {"tags": ["approvals"], "summary": "Lab incharge decision with stock check", "responses": {"200": {"description": "decided"}}}
        },
        "/approvals/mentor/{token}": {
            "get": {"tags": ["approvals"], "summary": "Preview the batch behind a mentor link", "security": [], "responses": {"200": {"description": "batch"}, "400": {"description": "TOKEN_EXPIRED or TOKEN_INVALID"}}},
            "post": {"tags": ["approvals"], "summary": "Decide through a mentor link", "security": [], "responses": {"200": {"description": "decided"}, "409": {"description": "TOKEN_USED"}}}
        },
        "/audit/events": {
            "get": {"tags": ["audit"], "summary": "List audit events", "responses": {"200": {"description": "events"}}}
        },
        "/audit/events.csv": {
            "get": {"tags": ["reports"], "summary": "Download the audit log as CSV", "produces": ["text/csv"], "responses": {"200": {"description": "csv"}}}
        },
        "/reports/requests.csv": {
            "get": {"tags": ["reports"], "summary": "Download the request ledger as CSV", "produces": ["text/csv"], "responses": {"200": {"description": "csv"}}}
        },
        "/reports/requests.xlsx": {
            "get": {"tags": ["reports"], "summary": "Download the request ledger as XLSX", "responses": {"200": {"description": "xlsx"}}}
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "CreateComponentRequest": {
            "type": "object",
            "required": ["id", "name", "total"],
            "properties": {
                "id": {"type": "string"}, "name": {"type": "string"},
                "total": {"type": "integer"}, "working": {"type": "integer"}
            }
        },
        "SubmitItem": {
            "type": "object",
            "required": ["component_name", "quantity"],
            "properties": {"component_name": {"type": "string"}, "quantity": {"type": "integer"}}
        },
        "SubmitRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "variant": {"type": "string", "enum": ["competition", "project", "intraday", "faculty", "purchase"]},
                "items": {"type": "array", "items": {"$ref": "#/definitions/SubmitItem"}},
                "due_date": {"type": "string", "example": "2025-03-20"},
                "purpose": {"type": "string"},
                "mentor_name": {"type": "string"},
                "mentor_email": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "RACE Lab Borrow API",
	Description:      "Component borrow, approval and inventory API for the RACE lab.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
