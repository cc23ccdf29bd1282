// Package predict holds the data-driven prediction functions consulted by
// the tap-hold engine: three CART decision trees over the captured timing
// snapshot, a closed-form minimum-overlap estimate found by symbolic
// regression, and the fast-streak estimators.
//
// The trees live in trees/ as JSON artifacts produced by offline training
// and are embedded at build time; they are never edited by hand. Every
// function here is pure: timing state in, probability or duration out.
package predict
