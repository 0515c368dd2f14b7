// Package httputil provides the JSON response helpers shared by the API
// handlers, so every endpoint writes the same content type, error envelope
// and cache headers.
package httputil
