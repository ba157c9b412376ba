// Package chatprompt turns declarative prompt templates into chat messages.
//
// A PromptTemplate is one string in f-string, Mustache or sandboxed Jinja2
// syntax. A ChatTemplate is an ordered list of literal messages, role message
// templates and placeholders that renders into []Message. Variables are
// inferred from the template text; partial variables pre-bind some of them.
//
// Content of a message template may be a list of parts: text, or image_url
// given as a URL or as mime_type plus base64 data.
package chatprompt
