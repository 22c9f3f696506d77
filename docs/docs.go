// Package docs contient la spécification Swagger servie par /swagger.
// Régénérer avec: swag init -g cmd/worker/main.go
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
        "/generate-plan": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Démarre un job de génération de plan",
                "parameters": [
                    {
                        "description": "Requête de génération",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/GeneratePlanRequest"}
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {"$ref": "#/definitions/JobAcceptedResponse"}
                    },
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/batch/run": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["batch"],
                "summary": "Démarre un batch de génération",
                "parameters": [
                    {
                        "description": "Requête de batch",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/BatchRunRequest"}
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {"$ref": "#/definitions/BatchStatusResponse"}
                    },
                    "400": {"description": "Bad Request"}
                }
            }
        }
    },
    "definitions": {
        "GeneratePlanRequest": {
            "type": "object",
            "required": ["file_ids"],
            "properties": {
                "file_ids": {"type": "array", "items": {"type": "string"}},
                "template_id": {"type": "string"},
                "options": {"type": "object"}
            }
        },
        "JobAcceptedResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "BatchRunRequest": {
            "type": "object",
            "required": ["file_ids"],
            "properties": {
                "file_ids": {"type": "array", "items": {"type": "string"}},
                "options": {"type": "object"},
                "use_batch_api": {"type": "boolean"}
            }
        },
        "BatchStatusResponse": {
            "type": "object",
            "properties": {
                "job": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8081",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "CleanSync Worker API",
	Description:      "Génération asynchrone de renholdsplaner depuis des plantegninger",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
