// Package prompt resolves stored prompt-template references into concrete
// request text. A reference has the form ".../prompt/<id>[:<version>]"; the
// template is fetched from a registry, its {{name}} placeholders are checked
// against the supplied variables for exact set equality, and each placeholder
// is substituted literally.
package prompt
