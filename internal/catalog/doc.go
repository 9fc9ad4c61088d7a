// Package catalog ingests the upstream software catalog and normalizes it
// into immutable snapshots.
//
// Two upstream shapes are supported. A scraped source walks a two-level
// directory listing (package directories, then "{name}-{version}"
// directories). A manifest source decodes a JSON or YAML document that lists
// packages with explicit kinds, descriptions, and artifact URIs. Both produce
// the same Package records. A Backup keeps the last good snapshot on disk in
// manifest form so either mode can be restored from it.
package catalog
