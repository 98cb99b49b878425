// Package auth provides authentication middleware for the HTTP API.
//
// APIKey(mode, header, key) returns middleware that validates the API key
// carried in the named request header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or
// absent, the middleware answers 401 immediately with a JSON error body.
package auth
