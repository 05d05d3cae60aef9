// Package matcher resolves source songs to media library tracks.
//
// Matching runs three tiers in order and stops at the first that yields a result:
//
//  1. Exact: the library's own title+artist search; the first hit wins outright.
//  2. Artist-scoped fuzzy: every track of every artist found for the normalized artist name is scored
//     with [PartialRatio] against the normalized title; the best is accepted above 85.
//  3. Global fuzzy: tracks found by title are scored 0.7*PartialRatio(title) + 0.3*Ratio(artist);
//     the best is accepted above 90.
//
// Comparisons use [Normalize]d text. Ties keep the candidate seen first.
package matcher
