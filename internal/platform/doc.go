// Package platform provides the filesystem operations installs need on every
// OS: permission changes for launcher descriptors and the "current" link that
// points a package at its active version directory. On Unix systems it uses
// chmod and native symlinks directly. On Windows, where symlinks need
// developer mode, the link falls back to a .target sidecar file.
package platform
