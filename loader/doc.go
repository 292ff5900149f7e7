// Package loader reads articles from a content directory.
//
// The expected layout is one directory per category holding one directory
// per article:
//
//	<root>/<category>/<slug>/body.md
//	<root>/<category>/<slug>/metadata.yaml
//
// Bodies are Markdown and are reduced to plain text before indexing.
// Drafts, archived articles and bodies shorter than the minimum length are
// reported as excluded rather than failed.
package loader
