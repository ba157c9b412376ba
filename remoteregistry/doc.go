// Package remoteregistry provides a prompt registry that loads YAML manifests through a
// caller-supplied Fetcher and caches the parsed templates with a configurable TTL.
// Concurrent misses for the same name and environment share one fetch.
//
// FSFetcher covers any fs.FS; other stores plug in by implementing Fetcher and,
// optionally, Lister and Statter. GetTemplate returns a cloned template.
package remoteregistry
