package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/predictd/docs.go -o internal/httpapi/docs`.
//
// @title           predictd API
// @version         1.0
// @description     Image model serving: per-model predictions and tongue/nail diabetes screening.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
