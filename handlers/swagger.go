package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRoutes) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>todolist - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "todolist", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "TodoForm": { "type": "object", "properties": { "id": {"type":"integer"}, "description": {"type":"string"}, "targetDate": {"type":"string","format":"date"}, "done": {"type":"boolean"} } },
      "Login": { "type": "object", "required": ["username","password"], "properties": { "username": {"type":"string"}, "password": {"type":"string"} } }
    }
  },
  "paths": {
    "/login": {
      "get": { "summary": "Login prompt", "responses": { "200": { "description": "login view" } } },
      "post": {
        "summary": "Log in with username and password",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Login"} }, "application/x-www-form-urlencoded": { "schema": {"$ref":"#/components/schemas/Login"} } } },
        "responses": { "200": { "description": "session cookie and access token" }, "302": { "description": "form login redirect" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/logout": {
      "post": { "summary": "Drop the session and blacklist the bearer token", "responses": { "200": { "description": "logged out" }, "302": { "description": "redirect to login" } } }
    },
    "/": { "get": { "summary": "Welcome page", "responses": { "200": { "description": "caller name" } } } },
    "/list-todos": { "get": { "summary": "List the caller's todos", "responses": { "200": { "description": "todos" } } } },
    "/add-todo": {
      "get": { "summary": "Empty add form", "responses": { "200": { "description": "form view" } } },
      "post": { "summary": "Create a todo", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/TodoForm"} } } }, "responses": { "200": { "description": "form redisplayed with errors" }, "302": { "description": "created" } } }
    },
    "/update-todo": {
      "get": { "summary": "Prefilled update form", "parameters": [{"name":"id","in":"query","required":true,"schema":{"type":"integer"}}], "responses": { "200": { "description": "form view" }, "404": { "description": "not found" } } },
      "post": { "summary": "Update a todo", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/TodoForm"} } } }, "responses": { "200": { "description": "form redisplayed with errors" }, "302": { "description": "updated" }, "404": { "description": "not found" } } }
    },
    "/delete-todo": {
      "get": { "summary": "Delete a todo", "parameters": [{"name":"id","in":"query","required":true,"schema":{"type":"integer"}}], "responses": { "302": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
