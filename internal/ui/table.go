package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"ompkg/pkg/lock"
	"ompkg/pkg/manager"
	"ompkg/pkg/project"
	"ompkg/pkg/registry"
	"ompkg/pkg/version"
	"ompkg/pkg/workspace"
)

// Table wraps tabwriter for consistent styling. Rows are buffered so
// the header row is always written first.
type Table struct {
	writer  *tabwriter.Writer
	headers []string
	rows    [][]string
}

// NewTableWriter creates a new table that writes to a specific writer.
func NewTableWriter(w io.Writer, header []string) *Table {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	return &Table{
		writer:  tw,
		headers: header,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Render outputs the table.
func (t *Table) Render() {
	if len(t.headers) > 0 {
		headerRow := make([]string, len(t.headers))
		for i, h := range t.headers {
			headerRow[i] = Bold(strings.ToUpper(h))
		}
		fmt.Fprintln(t.writer, strings.Join(headerRow, "\t"))
	}
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, strings.Join(row, "\t"))
	}
	t.writer.Flush()
}

// PrintEntries prints the packages of a workspace in a formatted table.
func PrintEntries(w io.Writer, entries []manager.Entry) {
	if len(entries) == 0 {
		MutedMsg("No packages declared")
		return
	}

	tbl := NewTableWriter(w, []string{"repository", "constraint", "target", "installed", "files"})

	for _, e := range entries {
		repo := RepoName.Sprint(e.Repo)
		if !e.Declared {
			repo += " " + Muted.Sprint("[lock only]")
		}

		constraint := e.Constraint
		if constraint == "" {
			constraint = "-"
		}

		target := "-"
		if e.Target.IsSet() {
			target = e.Target.String()
		}

		installed := NotInstalled.Sprint("not installed")
		if e.Installed {
			installed = Installed.Sprint(e.Version)
		}

		tbl.AddRow(repo, ConstraintTxt.Sprint(constraint), TargetLabel.Sprint(target), installed, strconv.Itoa(e.Files))
	}

	tbl.Render()
}

// PrintLockInfo prints what the lock records for one package.
func PrintLockInfo(repo string, spec *project.PackageSpec, pkg *lock.Package) {
	HeaderMsg("Package Information")

	printField("Repository", repo)
	if spec != nil {
		printField("Constraint", spec.Constraint())
		if spec.Target.IsSet() {
			printField("Requested target", spec.Target.String())
		}
	} else {
		printField("Constraint", Muted.Sprint("not declared"))
	}

	if pkg == nil {
		printField("Installed", NotInstalled.Sprint("no"))
		return
	}

	printField("Installed", ReleaseTag.Sprint(pkg.Version))
	if pkg.Target.IsSet() {
		printField("Target", pkg.Target.String())
	}
	printField("Files", fmt.Sprintf("%d", len(pkg.Files)))
	for _, f := range pkg.Files {
		MutedMsg("    %s", f)
	}
}

// PrintReleases prints release tags newest first, marking the ones that
// do not parse as versions and the one the constraint selects.
func PrintReleases(w io.Writer, releases []registry.Release, selected string) {
	if len(releases) == 0 {
		MutedMsg("No releases published")
		return
	}

	tbl := NewTableWriter(w, []string{"tag", "version", "published", "assets"})

	for _, r := range releases {
		tag := ReleaseTag.Sprint(r.Tag)
		if r.Tag == selected {
			tag += " " + Success.Sprint(SymbolArrow+" selected")
		}
		if r.Prerelease {
			tag += " " + Warning.Sprint("[pre-release]")
		}

		ver := Muted.Sprint("unparseable")
		if v, err := version.Parse(r.Tag); err == nil {
			ver = v.String()
		}

		published := "-"
		if !r.PublishedAt.IsZero() {
			published = r.PublishedAt.Format("2006-01-02")
		}

		names := make([]string, len(r.Assets))
		for i, a := range r.Assets {
			names[i] = a.Name
		}
		assets := strings.Join(names, ", ")
		if len(assets) > 60 {
			assets = assets[:57] + "..."
		}

		tbl.AddRow(tag, ver, published, assets)
	}

	tbl.Render()
}

// PrintWorkspace prints the detected workspace layout.
func PrintWorkspace(info *workspace.Info) {
	HeaderMsg("Workspace")

	printField("Root", info.Root)
	printField("Server", string(info.Flavor))
	printField("Components", dirStatus(info.ComponentsDir))
	printField("Plugins", dirStatus(info.PluginsDir))
	for _, dir := range info.IncludeDirs {
		printField("Includes", dirStatus(dir))
	}
}

// dirStatus reports whether dir exists yet.
func dirStatus(dir string) string {
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		return dir
	}
	return dir + " " + Muted.Sprint("(missing)")
}

// printField prints a single field with formatting.
func printField(label, value string) {
	fmt.Printf("  %s: %s\n", Cyan(label), value)
}
