// Package docs registers the OpenAPI description served under /swagger.
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
        "/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Chat with the energy assistant",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ChatRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/biz.ChatReply"}}}
            }
        },
        "/chat/history/{session_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Get chat history",
                "parameters": [{"type": "string", "name": "session_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/chat/sessions/{session_id}": {
            "delete": {
                "tags": ["chat"],
                "summary": "Delete a chat session",
                "parameters": [{"type": "string", "name": "session_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/metrics/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Current power summary",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MetricsSummary"}}}
            }
        },
        "/metrics/recent": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Recent readings",
                "parameters": [{"type": "integer", "default": 10, "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/metrics/by-cluster/{cluster_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Recent readings of a cluster",
                "parameters": [
                    {"type": "integer", "name": "cluster_id", "in": "path", "required": true},
                    {"type": "integer", "default": 10, "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/devices": {
            "get": {
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "List devices",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.DeviceInfo"}}}}
            }
        },
        "/devices/{cluster_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Get a device",
                "parameters": [{"type": "integer", "name": "cluster_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.DeviceInfo"}}, "404": {"description": "Not Found"}}
            }
        },
        "/data": {
            "get": {
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Raw readings",
                "parameters": [{"type": "integer", "default": 5, "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Insert a reading",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateDataRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "definitions": {
        "handler.ChatRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "session_id": {"type": "string"}
            }
        },
        "biz.ChatReply": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "session_id": {"type": "string"},
                "devices": {"type": "array", "items": {"$ref": "#/definitions/model.DeviceSummary"}},
                "confidence": {"type": "number"}
            }
        },
        "model.DeviceSummary": {
            "type": "object",
            "properties": {
                "cluster_id": {"type": "integer"},
                "name": {"type": "string"},
                "avg_power": {"type": "number"},
                "avg_thd": {"type": "number"}
            }
        },
        "model.DeviceInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "cluster": {"type": "integer"},
                "typical_power": {"type": "number"},
                "typical_thd": {"type": "number"},
                "description": {"type": "string"}
            }
        },
        "model.MetricsSummary": {
            "type": "object",
            "properties": {
                "total_devices": {"type": "integer"},
                "total_power": {"type": "number"},
                "avg_power_factor": {"type": "number"},
                "avg_thd": {"type": "number"},
                "timestamp": {"type": "string"}
            }
        },
        "handler.CreateDataRequest": {
            "type": "object",
            "required": ["cluster"],
            "properties": {
                "timestamp": {"type": "string"},
                "voltage": {"type": "number"},
                "current": {"type": "number"},
                "real_power": {"type": "number"},
                "reactive_power": {"type": "number"},
                "apparent_power": {"type": "number"},
                "power_factor": {"type": "number", "minimum": -1, "maximum": 1},
                "frequency": {"type": "number"},
                "thd": {"type": "number"},
                "real_power_watt": {"type": "number"},
                "cluster": {"type": "integer", "minimum": 0},
                "device_state": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "NILM Chat API",
	Description:      "Chat over non-intrusive load monitoring data.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
