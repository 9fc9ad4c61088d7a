package catalog

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ada-labs/swinstall/internal/versions"
)

// Kind is how a package is installed.
type Kind int

const (
	// KindContainerImage packages are installed by downloading the image
	// plus its launcher descriptor and icon.
	KindContainerImage Kind = iota
	// KindNativePackage packages are installed through the OS package manager.
	KindNativePackage
)

// String returns the manifest spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindContainerImage:
		return "container"
	case KindNativePackage:
		return "native"
	default:
		return "unknown"
	}
}

// ParseKind parses the manifest spelling of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "container":
		return KindContainerImage, nil
	case "native":
		return KindNativePackage, nil
	default:
		return 0, fmt.Errorf("unknown package kind %q", s)
	}
}

// Role names an artifact attached to a variant.
type Role string

const (
	RolePrimary  Role = "primary"
	RoleLauncher Role = "launcher"
	RoleIcon     Role = "icon"
)

// Artifacts maps each role to a URI. Empty means the role is absent.
type Artifacts struct {
	Primary  string
	Launcher string
	Icon     string
}

// Ref returns the URI for role.
func (a Artifacts) Ref(role Role) string {
	switch role {
	case RolePrimary:
		return a.Primary
	case RoleLauncher:
		return a.Launcher
	case RoleIcon:
		return a.Icon
	default:
		return ""
	}
}

// Variant is one published version of a package.
type Variant struct {
	Version   string
	Artifacts Artifacts
}

// Package is a catalog entry. Variants are in ingestion order.
type Package struct {
	Name        string
	Kind        Kind
	Description string
	Variants    []Variant

	// latest is the resolved index into Variants, -1 when there are none.
	// Only meaningful when resolved is set.
	latest   int
	resolved bool
}

// Versions returns the variant versions in ingestion order.
func (p Package) Versions() []string {
	out := make([]string, len(p.Variants))
	for i, v := range p.Variants {
		out[i] = v.Version
	}
	return out
}

// Latest returns the latest variant. The second result is false when the
// package has no variants.
func (p Package) Latest() (Variant, bool) {
	i := p.latest
	if !p.resolved {
		i = versions.Latest(p.Versions())
	}
	if i < 0 {
		return Variant{}, false
	}
	return p.Variants[i], true
}

// LatestLabel returns the latest version or versions.Unavailable.
func (p Package) LatestLabel() string {
	if v, ok := p.Latest(); ok {
		return v.Version
	}
	return versions.Unavailable
}

// Variant returns the variant with the given version.
func (p Package) Variant(version string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Version == version {
			return v, true
		}
	}
	return Variant{}, false
}

func (p Package) clone() Package {
	p.Variants = slices.Clone(p.Variants)
	return p
}

// Origin records where a snapshot came from.
type Origin int

const (
	OriginLive Origin = iota
	OriginBackup
)

func (o Origin) String() string {
	if o == OriginBackup {
		return "backup"
	}
	return "live"
}

// Snapshot is an immutable, resolved view of the catalog. A refresh builds a
// new Snapshot; existing ones are never modified.
type Snapshot struct {
	packages  []Package
	index     map[string]int
	fetchedAt time.Time
	origin    Origin
}

// NewSnapshot normalizes pkgs into a snapshot. Later packages reusing an
// earlier name and later variants reusing a version within a package are
// dropped. The latest variant of every package is resolved up front.
func NewSnapshot(pkgs []Package, fetchedAt time.Time, origin Origin) *Snapshot {
	s := &Snapshot{
		packages:  make([]Package, 0, len(pkgs)),
		index:     make(map[string]int, len(pkgs)),
		fetchedAt: fetchedAt,
		origin:    origin,
	}
	for _, p := range pkgs {
		if p.Name == "" {
			continue
		}
		if _, dup := s.index[p.Name]; dup {
			continue
		}
		p.Variants = uniqueVariants(p.Variants)
		p.latest = versions.Latest(p.Versions())
		p.resolved = true
		s.index[p.Name] = len(s.packages)
		s.packages = append(s.packages, p)
	}
	return s
}

func uniqueVariants(in []Variant) []Variant {
	seen := make(map[string]bool, len(in))
	out := make([]Variant, 0, len(in))
	for _, v := range in {
		if v.Version == "" || seen[v.Version] {
			continue
		}
		seen[v.Version] = true
		out = append(out, v)
	}
	return out
}

// Packages returns a copy of the packages in catalog order.
func (s *Snapshot) Packages() []Package {
	out := make([]Package, len(s.packages))
	for i, p := range s.packages {
		out[i] = p.clone()
	}
	return out
}

// Len returns the number of packages.
func (s *Snapshot) Len() int { return len(s.packages) }

// Lookup returns the package named name.
func (s *Snapshot) Lookup(name string) (Package, bool) {
	i, ok := s.index[name]
	if !ok {
		return Package{}, false
	}
	return s.packages[i].clone(), true
}

// FetchedAt returns when the underlying data was fetched upstream.
func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Origin returns where the snapshot came from.
func (s *Snapshot) Origin() Origin { return s.origin }
