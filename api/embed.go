// Package api содержит OpenAPI-описание HTTP API, встроенное в бинарник.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
