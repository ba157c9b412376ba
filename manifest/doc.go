// Package manifest parses YAML prompt manifests into chatprompt.ChatTemplate values.
//
// A manifest carries id, version, description, syntax, tags, model_config,
// variables (input, partial) and messages. A message has a role (system,
// human, user, ai, assistant, generic, placeholder) and either content or parts.
package manifest
