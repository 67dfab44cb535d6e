package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"ompkg/internal/ui"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/version"
)

var releasesConstraint string

var releasesCmd = &cobra.Command{
	Use:   "releases owner/name",
	Short: "List the published releases of a repository",
	Long: `List the releases of a repository, newest first, with the
version each tag parses to and the assets attached to it. The release
a constraint selects is marked.

Examples:
  ompkg releases owner/plugin
  ompkg releases owner/plugin -c "^2.0"`,
	Args: cobra.ExactArgs(1),
	RunE: runReleases,
}

func init() {
	releasesCmd.Flags().StringVarP(&releasesConstraint, "constraint", "c", "", "mark the release this constraint selects")
}

func runReleases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := newRegistry(nil)
	if err != nil {
		return err
	}
	constraint, err := version.ParseConstraint(releasesConstraint)
	if err != nil {
		return err
	}

	sp := ui.NewSpinner("Fetching releases of " + args[0])
	sp.Start()
	releases, err := client.ListReleases(ctx, args[0])
	if err != nil {
		sp.Error("Could not list releases")
		return err
	}

	var selected string
	release, err := client.Resolve(ctx, args[0], constraint)
	sp.Stop()
	switch {
	case err == nil:
		selected = release.Tag
	case errors.Is(err, pkgerr.ErrNotFound):
		ui.WarningMsg("No release matches %s", constraint.String())
	default:
		return err
	}

	ui.PrintReleases(os.Stdout, releases, selected)
	return nil
}
