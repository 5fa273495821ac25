// Package pricing recognises product identifiers and pricing content in
// plain text.
//
// It is a leaf package used by the chunk tagger and the product-pricing
// matcher. It only depends on the domain package and golang.org/x/text.
//
// # Identifier normalisation
//
// Two identifiers are equal when their normalised forms are equal. The
// normalised form of a token is computed as follows:
//
//  1. Unicode NFKC, which folds full-width letters and digits
//     ("ＸＲ２００" becomes "XR200") and compatibility characters.
//  2. Every dash (Unicode category Pd, plus U+2212 MINUS SIGN) and every
//     whitespace rune is removed.
//  3. The result is upper-cased with Unicode simple case mapping.
//
// A normalised token is an identifier when it is 4 to 20 runes long,
// contains at least one letter and one digit, and is not a plain
// measurement such as "256GB" or "1080P".
package pricing
