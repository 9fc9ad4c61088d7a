package dispatch

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/ada-labs/swinstall/internal/catalog"
)

const currentLink = "current"

// Paths are the install destinations for container images.
type Paths struct {
	Downloads string
	Launchers string
	Icons     string
}

// plan builds the steps that install v of pkg. Name and version must already
// have passed ValidateIdentifier.
func (d *Dispatcher) plan(pkg catalog.Package, v catalog.Variant) ([]step, error) {
	if pkg.Kind == catalog.KindNativePackage {
		argv, err := BuildCommand(d.packageManager, map[string]string{
			"name":    pkg.Name,
			"version": v.Version,
		})
		if err != nil {
			return nil, err
		}
		return []step{&commandStep{argv: argv, runner: d.runner}}, nil
	}

	a := v.Artifacts
	if a.Primary == "" {
		return nil, fmt.Errorf("%s %s: %w", pkg.Name, v.Version, ErrNoArtifacts)
	}

	versionDir := pkg.Name + "-" + v.Version
	root := filepath.Join(d.paths.Downloads, pkg.Name)
	steps := []step{
		d.fetch(catalog.RolePrimary, a.Primary, filepath.Join(root, versionDir, fileName(a.Primary, pkg.Name, ".sif")), 0),
	}
	if a.Launcher != "" {
		steps = append(steps, d.fetch(catalog.RoleLauncher, a.Launcher, filepath.Join(d.paths.Launchers, pkg.Name+".desktop"), 0755))
	}
	if a.Icon != "" {
		steps = append(steps, d.fetch(catalog.RoleIcon, a.Icon, filepath.Join(d.paths.Icons, fileName(a.Icon, pkg.Name, ".png")), 0))
	}
	steps = append(steps, &linkStep{link: filepath.Join(root, currentLink), dir: versionDir})
	return steps, nil
}

func (d *Dispatcher) fetch(role catalog.Role, uri, dest string, mode os.FileMode) step {
	return &fetchStep{
		role:   string(role),
		url:    uri,
		dest:   dest,
		mode:   mode,
		client: d.httpClient,
		logger: d.logger,
	}
}

// fileName names a downloaded artifact after the package, keeping the
// extension of the artifact URL when it is a plain identifier.
func fileName(uri, name, fallbackExt string) string {
	ext := fallbackExt
	if u, err := url.Parse(uri); err == nil {
		if e := path.Ext(u.Path); len(e) > 1 && ValidateIdentifier(e[1:]) == nil {
			ext = e
		}
	}
	return name + ext
}
