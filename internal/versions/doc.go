// Package versions orders package version strings and picks the latest one.
//
// A candidate set is ordered numerically when every member is a dotted
// sequence of unsigned integers (shorter sequences are zero-padded), and
// byte-wise lexically otherwise. The choice is made once per set, so a
// single resolution never mixes the two orderings.
package versions
