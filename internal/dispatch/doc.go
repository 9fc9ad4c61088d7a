// Package dispatch runs installation jobs in the background.
//
// Submit validates a package/version pair against the current catalog,
// records a Pending job and returns its id without waiting. A fixed pool of
// workers takes queued jobs, moves them to Running and executes their steps
// in order: for container images the primary artifact, launcher descriptor
// and icon are fetched over HTTP and the package's "current" link is moved
// to the new version; native packages run one package-manager command.
//
// A job ends Completed or Failed and never changes again. A failing step
// fails the job and the remaining steps are not attempted. Files written by
// earlier steps are left in place.
//
// Package names and versions are checked against a strict allowlist before
// they are used in any path or command. Commands are built as argument
// vectors and never pass through a shell.
package dispatch
