// Package pagination implements the page/per_page query convention shared by
// every list endpoint and the envelope returned alongside list results.
package pagination
