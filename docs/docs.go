// Package docs registers the OpenAPI specification served by the Swagger
// UI route. It mirrors what `swag init` would generate from the handler
// annotations in internal/http/handlers; maintained here directly rather
// than checking in a generated artifact that would drift from the routes
// in internal/http/router.go.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{.Description}}",
    "version": "{{.Version}}"
  },
  "basePath": "{{.BasePath}}",
  "paths": {
    "/chat/sessions": {
      "post": {"tags": ["Chat"], "summary": "Create a chat session", "responses": {"201": {"description": "created"}}},
      "get": {"tags": ["Chat"], "summary": "List chat sessions for a user", "responses": {"200": {"description": "ok"}}}
    },
    "/chat/sessions/{id}": {
      "get": {"tags": ["Chat"], "summary": "Fetch a chat session and its messages", "responses": {"200": {"description": "ok"}}},
      "delete": {"tags": ["Chat"], "summary": "Delete a chat session", "responses": {"204": {"description": "no content"}}}
    },
    "/chat/sessions/{id}/messages": {
      "post": {"tags": ["Chat"], "summary": "Send a message and stream the assistant's reply", "responses": {"200": {"description": "text/event-stream"}}}
    },
    "/documents/upload": {
      "post": {"tags": ["Documents"], "summary": "Upload a medical document for ingestion", "responses": {"201": {"description": "created"}}}
    },
    "/documents": {
      "get": {"tags": ["Documents"], "summary": "List uploaded documents for a user", "responses": {"200": {"description": "ok"}}}
    },
    "/documents/{id}": {
      "get": {"tags": ["Documents"], "summary": "Fetch a document's status and diagnostics", "responses": {"200": {"description": "ok"}}},
      "delete": {"tags": ["Documents"], "summary": "Delete a document", "responses": {"204": {"description": "no content"}}}
    },
    "/labs": {
      "get": {"tags": ["Labs"], "summary": "List lab results within a recent window", "responses": {"200": {"description": "ok"}}}
    },
    "/labs/trends/{test_name}": {
      "get": {"tags": ["Labs"], "summary": "Trend statistics for one lab test over time", "responses": {"200": {"description": "ok"}}}
    },
    "/labs/test-names": {
      "get": {"tags": ["Labs"], "summary": "Distinct lab test names on record for a user", "responses": {"200": {"description": "ok"}}}
    },
    "/symptoms": {
      "post": {"tags": ["Symptoms"], "summary": "Record a self-reported symptom entry", "responses": {"201": {"description": "created"}}},
      "get": {"tags": ["Symptoms"], "summary": "List symptom entries", "responses": {"200": {"description": "ok"}}}
    },
    "/symptoms/types": {
      "get": {"tags": ["Symptoms"], "summary": "Distinct symptom types on record for a user", "responses": {"200": {"description": "ok"}}}
    },
    "/ai/status": {
      "get": {"tags": ["AI"], "summary": "Report inference server and OCR sidecar reachability", "responses": {"200": {"description": "ok"}}}
    }
  }
}`

// SwaggerInfo holds exported Swagger configuration, matching the shape
// swag's generated code registers at package init.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Health Assistant API",
	Description:      "Grounded-chat health assistant: sessions, streaming messages, document ingestion, labs, and symptoms.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
