// Package adapter defines the ProviderAdapter interface for mapping rendered chat
// messages and model config to a client library's request type. Implementations
// live in subpackages (see adapter/langchaingo).
package adapter
