// Package middleware provides DocumentStore wrappers.
//
// NewEncryptionMiddleware seals documents with AES-256-GCM before they reach the
// wrapped store and supports key rotation through fallback keys.
package middleware
