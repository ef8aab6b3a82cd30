package http

import "github.com/swaggo/swag"

const openAPITemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/dispatch": {
            "post": {
                "summary": "Dispatch one voice command",
                "consumes": ["application/json", "audio/wav", "audio/ogg", "audio/mpeg"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/Request"}},
                    {"in": "header", "name": "X-Echowise-Source", "type": "string"},
                    {"in": "header", "name": "X-Echowise-Locale", "type": "string"},
                    {"in": "header", "name": "Accept-Language", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rendered response", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Malformed request or audio without a speech source"},
                    "500": {"description": "Capability adapter failure"}
                }
            }
        }
    },
    "definitions": {
        "Request": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "utterance": {"type": "string"},
                "locale": {"type": "string"}
            }
        },
        "Response": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "transcript": {"type": "string"},
                "intent": {"type": "string"},
                "enable": {"type": "boolean"},
                "outcome": {"type": "string"},
                "permission": {"type": "string"},
                "key": {"type": "string"},
                "text": {"type": "string"},
                "locale": {"type": "string"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo is the OpenAPI document served at /swagger/doc.json.
var SwaggerInfo = &swag.Spec{
	Version:          "v1",
	BasePath:         "/",
	Title:            "echowise",
	Description:      "Voice-command shell: classify an utterance and run the matching device capability.",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  openAPITemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
