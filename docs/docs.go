// Package docs holds the OpenAPI document served under /swagger.
//
// It follows the layout swag emits and is regenerated from the handler
// annotations with go generate ./cmd/api.
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
        "/": {
            "get": {
                "description": "Reports that the backend is running",
                "produces": [
                    "text/plain"
                ],
                "tags": [
                    "health"
                ],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "PDF Merger Backend is running.",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/inspect": {
            "post": {
                "description": "Returns page count and first-page size of each uploaded PDF, in upload order",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "files"
                ],
                "summary": "Inspect uploaded PDFs",
                "parameters": [
                    {
                        "type": "file",
                        "description": "PDF files (repeat the field)",
                        "name": "files",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.InspectResponse"
                        }
                    },
                    "400": {
                        "description": "No files uploaded",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "500": {
                        "description": "Inspect failed",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/upload": {
            "post": {
                "description": "Concatenates every page of every uploaded PDF, in upload order, into one document",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/pdf"
                ],
                "tags": [
                    "files"
                ],
                "summary": "Merge uploaded PDFs",
                "parameters": [
                    {
                        "type": "file",
                        "description": "PDF files in merge order (repeat the field)",
                        "name": "files",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "merged.pdf",
                        "schema": {
                            "type": "file"
                        },
                        "headers": {
                            "X-Merged-Pages": {
                                "type": "integer",
                                "description": "Number of pages in the merged document"
                            }
                        }
                    },
                    "400": {
                        "description": "No files uploaded",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "500": {
                        "description": "Merge failed",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "handlers.FileInfo": {
            "type": "object",
            "properties": {
                "height": {
                    "type": "number"
                },
                "index": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "pages": {
                    "type": "integer"
                },
                "size": {
                    "type": "integer"
                },
                "width": {
                    "type": "number"
                }
            }
        },
        "handlers.InspectResponse": {
            "type": "object",
            "properties": {
                "files": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/handlers.FileInfo"
                    }
                },
                "totalPages": {
                    "type": "integer"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:5001",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "go-pdfmerger API",
	Description:      "Merges uploaded PDF files into a single document.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
