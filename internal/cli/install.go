package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/dispatch"
	"github.com/ada-labs/swinstall/internal/versions"
	"github.com/spf13/cobra"
)

var (
	installConstraint  string
	installYes         bool
	installJSON        bool
	installOnInterrupt string
)

var installCmd = &cobra.Command{
	Use:   "install <package>[@version]...",
	Short: "Install packages from the catalog",
	Long: `Install one or more catalog packages.

Without @version the latest version is installed, or the highest version
satisfying --constraint when one is given. Container images are downloaded
to download_dir with their launcher and icon; native packages are installed
with package_manager. Up to "workers" installs run at the same time.

A failed step stops its install; files written by earlier steps are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installConstraint, "constraint", "", `Semantic version constraint, e.g. "~1.2" or ">= 2, < 3"`)
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	installCmd.Flags().BoolVar(&installJSON, "json", false, "Print the final job states as JSON")
	installCmd.Flags().StringVar(&installOnInterrupt, "on-interrupt", "abandon", "What to do with unfinished installs on Ctrl-C (drain, abandon)")
	rootCmd.AddCommand(installCmd)
}

// installRequest is one resolved package/version pair.
type installRequest struct {
	Name    string
	Version string
	Kind    catalog.Kind
}

func runInstall(cmd *cobra.Command, args []string) error {
	policy, err := dispatch.ParsePolicy(installOnInterrupt)
	if err != nil {
		return err
	}

	e, err := loadEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := e.cache.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	requests, err := resolveRequests(snap, args, installConstraint)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Install plan:")
	for _, r := range requests {
		fmt.Fprintf(out, "  %s %s (%s)\n", r.Name, r.Version, r.Kind)
	}
	if !installYes && !confirm(cmd, "Proceed with installation?") {
		fmt.Fprintln(out, "Installation cancelled.")
		return nil
	}

	d := e.dispatcher()
	var ids []string
	for _, r := range requests {
		id, err := d.Submit(ctx, r.Name, r.Version)
		if err != nil {
			_ = d.Shutdown(context.Background(), dispatch.Abandon)
			return fmt.Errorf("submitting %s %s: %w", r.Name, r.Version, err)
		}
		ids = append(ids, id)
	}

	var failed int
	for _, id := range ids {
		job, err := d.Wait(ctx, id)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted; stopping unfinished installs (%s).\n", policy)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err = d.Shutdown(shutdownCtx, policy)
			cancel()
			if err != nil {
				return fmt.Errorf("stopping installs: %w", err)
			}
			break
		}
		if !installJSON {
			reportJob(cmd, job)
		}
	}
	if err := d.Shutdown(context.Background(), dispatch.Drain); err != nil {
		return err
	}

	jobs := d.Jobs()
	for _, j := range jobs {
		if j.Status != dispatch.StatusCompleted {
			failed++
		}
	}
	if installJSON {
		if err := printJSON(cmd, jobs); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d installs failed", failed, len(jobs))
	}
	return nil
}

// resolveRequests turns "name" and "name@version" arguments into concrete
// pairs using snap.
func resolveRequests(snap *catalog.Snapshot, args []string, constraint string) ([]installRequest, error) {
	requests := make([]installRequest, 0, len(args))
	for _, arg := range args {
		name, version, pinned := strings.Cut(arg, "@")
		p, ok := snap.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: package %q", dispatch.ErrUnknownPackageOrVersion, name)
		}

		switch {
		case pinned:
		case constraint != "":
			vs := p.Versions()
			i, err := versions.MatchConstraint(vs, constraint)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			version = vs[i]
		default:
			v, ok := p.Latest()
			if !ok {
				return nil, fmt.Errorf("%s: no installable version (%s)", name, versions.Unavailable)
			}
			version = v.Version
		}
		requests = append(requests, installRequest{Name: p.Name, Version: version, Kind: p.Kind})
	}
	return requests, nil
}

func reportJob(cmd *cobra.Command, job dispatch.Job) {
	out := cmd.OutOrStdout()
	if job.Status == dispatch.StatusCompleted {
		fmt.Fprintf(out, "Installed %s %s\n", job.Package, job.Version)
		return
	}

	fmt.Fprintf(out, "Failed %s %s\n", job.Package, job.Version)
	var stepErr *dispatch.StepError
	if errors.As(job.Err, &stepErr) {
		fmt.Fprintf(out, "  step %s: %v\n", stepErr.Step, stepErr.Err)
		for _, line := range strings.Split(strings.TrimSpace(stepErr.Output), "\n") {
			if line != "" {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
	} else if job.Err != nil {
		fmt.Fprintf(out, "  %v\n", job.Err)
	}
	for _, s := range job.Steps {
		if s.Status == dispatch.StatusCompleted {
			fmt.Fprintf(out, "  kept %s\n", s.Target)
		}
	}
}

// confirm asks a yes/no question on stdin. An empty answer means yes.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "? %s (Y/n) ", question)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}
