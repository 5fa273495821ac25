// Package mcp provides an MCP (Model Context Protocol) server adapter for
// docquery. It lets AI assistants search the index, build token-budgeted
// context and cross-reference product identifiers with pricing documents.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
