// Package normalisers provides implementations of the Normaliser interface
// for the accepted file types. Each normaliser extracts text spans and
// file-type details from one family of formats.
//
// Normalisers are registered with a Registry at startup; DefaultRegistry
// registers all of them.
package normalisers
