// Package search ranks catalog packages against a free-text query.
//
// Every candidate name gets a 0-100 similarity score: the best normalized
// edit-distance similarity between the query and any equally long window of
// the name, computed on case-folded text and again on word-sorted text so
// reordered words still match. Candidates at or above the threshold are
// returned best first; equal scores keep catalog order.
package search
