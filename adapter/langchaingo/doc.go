// Package langchaingo implements adapter.ProviderAdapter for github.com/tmc/langchaingo/llms.
//
// Translate returns *Request (message contents plus call options); ParseResponse expects
// *llms.ContentResponse. Generate renders a template and calls an llms.Model in one step.
package langchaingo
