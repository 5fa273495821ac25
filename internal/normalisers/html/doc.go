// Package html provides a Normaliser implementation for HTML documents.
// It walks the parsed DOM, dropping scripts, styles and other non-content
// elements, and lays block elements out as separate paragraphs. Table
// rows become single lines with cells joined by " | ".
package html
