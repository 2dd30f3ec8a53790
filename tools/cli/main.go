package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/boyter/gocodewalker"
	"github.com/gentoo/pr-assign/internal/config"
	"github.com/gentoo/pr-assign/internal/git"
	f "github.com/gentoo/pr-assign/pkg/functional"
	"github.com/gentoo/pr-assign/pkg/triage"
	"github.com/urfave/cli/v2"
)

// stripRoot makes a walked location relative to root. The walker cleans locations,
// so root is cleaned before comparing.
func stripRoot(root string, path string) string {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func main() {
	var repo string
	var ref string
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "Print version",
	}
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Println(cCtx.App.Version)
	}
	rootFlag := &cli.StringFlag{
		Name:        "root",
		Aliases:     []string{"r", "repo"},
		Value:       "./",
		Usage:       "Path to the local ebuild repository",
		Destination: &repo,
	}
	refFlag := &cli.StringFlag{
		Name:        "ref",
		Value:       "",
		Usage:       "Read the tree at this Git ref instead of the working directory",
		Destination: &ref,
	}
	mappingFlags := []cli.Flag{
		&cli.StringFlag{Name: "dev-mapping", EnvVars: []string{"GITHUB_DEV_MAPPING"}, Usage: "Developer e-mail to GitHub login mapping"},
		&cli.StringFlag{Name: "proxied-mapping", EnvVars: []string{"GITHUB_PROXIED_MAINT_MAPPING"}, Usage: "Proxied maintainer e-mail to GitHub login mapping"},
		&cli.StringFlag{Name: "proj-mapping", EnvVars: []string{"GITHUB_PROJ_MAPPING"}, Usage: "Project e-mail to GitHub team mapping"},
	}
	app := &cli.App{
		Name:        "pr-assign-cli",
		Usage:       "CLI tool for inspecting how pull requests against an ebuild repository are triaged",
		Version:     "v0.1.0.dev",
		Description: "",
		Commands: []*cli.Command{
			{
				Name:        "classify",
				Aliases:     []string{"c"},
				Usage:       "Classify changed paths into areas and packages",
				UsageText:   "pr-assign-cli classify [options] [path1] [path2]...",
				Description: "Classify changed paths. Paths are taken from the arguments, from stdin when piped, or from the diff between --base and --head.",
				Flags: []cli.Flag{
					rootFlag,
					refFlag,
					&cli.StringFlag{
						Name:  "base",
						Value: "",
						Usage: "Base ref of the diff to classify",
					},
					&cli.StringFlag{
						Name:  "head",
						Value: "HEAD",
						Usage: "Head ref of the diff to classify",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "default",
						Usage:   "Output format.  Allowed values are: default, one-line, and json",
					},
				},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					paths, err := changedPaths(repo, cCtx.Args().Slice(), cCtx.String("base"), cCtx.String("head"))
					if err != nil {
						return err
					}
					return classifyPaths(os.Stdout, treeReader(repo, ref), paths, format)
				},
			},
			{
				Name:        "maintainers",
				Aliases:     []string{"m"},
				Usage:       "Get the maintainers of one or more packages",
				UsageText:   "pr-assign-cli maintainers [options] <category/package>...",
				Description: "Resolve the maintainers of packages the way they are rendered in the assignment comment. Packages can also be piped on stdin.",
				Flags: append([]cli.Flag{
					rootFlag,
					refFlag,
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "default",
						Usage:   "Output format.  Allowed values are: default, one-line, and json",
					},
				}, mappingFlags...),
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					targets := cCtx.Args().Slice()
					if len(targets) == 0 && isStdinPiped() {
						if targets, err = scanStdin(); err != nil {
							return err
						}
					}
					if len(targets) == 0 {
						return fmt.Errorf("at least one package is required")
					}
					mappings, err := loadMappings(cCtx.String("dev-mapping"), cCtx.String("proxied-mapping"), cCtx.String("proj-mapping"))
					if err != nil {
						return err
					}
					return packageMaintainers(os.Stdout, repo, ref, targets, mappings, format)
				},
			},
			{
				Name:        "unmaintained",
				Aliases:     []string{"u"},
				Usage:       "List packages without maintainers",
				UsageText:   "pr-assign-cli unmaintained [options] [category]...",
				Description: "Walk the repository and list packages whose metadata.xml names no maintainer. If categories are given, only those are checked.",
				Flags: []cli.Flag{
					rootFlag,
				},
				Action: func(cCtx *cli.Context) error {
					return unmaintainedPackages(os.Stdout, repo, cCtx.Args().Slice())
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func checkRoot(repo string) error {
	if repoStat, err := os.Lstat(repo); err != nil || !repoStat.IsDir() {
		return fmt.Errorf("root is not a directory: %s", repo)
	}
	return nil
}

func treeReader(repo string, ref string) triage.TreeReader {
	if ref != "" {
		return git.NewGitRefFileReader(ref, repo)
	}
	return triage.DirTree(repo)
}

func loadMappings(dev string, proxied string, proj string) (triage.Mappings, error) {
	if dev == "" && proxied == "" && proj == "" {
		return triage.Mappings{}, nil
	}
	return config.LoadMappings(dev, proxied, proj)
}

func changedPaths(repo string, args []string, base string, head string) ([]triage.ChangedPath, error) {
	var names []string
	switch {
	case len(args) > 0:
		names = args
	case base != "":
		diff, err := git.NewDiff(git.DiffContext{Base: base, Head: head, Dir: repo})
		if err != nil {
			return nil, err
		}
		return diff.AllChanges(), nil
	case isStdinPiped():
		lines, err := scanStdin()
		if err != nil {
			return nil, err
		}
		names = lines
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no changed paths given")
	}
	return f.Map(names, func(name string) triage.ChangedPath {
		return triage.NewChangedPath(name, name)
	}), nil
}

func classifyPaths(w io.Writer, tree triage.TreeReader, paths []triage.ChangedPath, format OutputFormat) error {
	categories, err := triage.ReadCategories(tree)
	if err != nil {
		return fmt.Errorf("error reading %s: %s", triage.CategoriesFile, err)
	}
	c := triage.Classify(paths, categories)
	result := Classification{
		Areas:    c.SortedAreas(),
		Packages: f.Sorted(c.Packages),
	}
	return result.Render(w, format)
}

func packageMaintainers(w io.Writer, repo string, ref string, targets []string, mappings triage.Mappings, format OutputFormat) error {
	if err := checkRoot(repo); err != nil {
		return err
	}
	for _, target := range targets {
		if strings.Count(target, "/") != 1 {
			return fmt.Errorf("not a category/package reference: %s", target)
		}
	}

	configPath := repo
	var reader config.ConfigReader
	if ref != "" {
		// git ref paths are relative to the repository root
		configPath = ""
		reader = git.NewGitRefFileReader(ref, repo)
	}
	conf, err := config.ReadConfig(configPath, reader)
	if err != nil {
		return fmt.Errorf("error reading %s: %s", config.FileName, err)
	}

	resolver := &triage.Resolver{
		Tree:                treeReader(repo, ref),
		Mapper:              triage.NewIdentityMapper(mappings, conf.MailSuffix),
		ProxyMaintTeam:      conf.ProxyMaintTeam,
		AssigneeLimit:       triage.UnlimitedAssignees,
		DescribeMaintainers: conf.DescribeMaintainers,
	}
	res := resolver.Resolve(f.NewSet(targets...), "")

	listing := MaintainerListing{Targets: targets, Maintainers: res.Maintainers}
	return listing.Render(w, format)
}

func unmaintainedPackages(w io.Writer, repo string, categoryFilter []string) error {
	if err := checkRoot(repo); err != nil {
		return err
	}
	categories, err := triage.ReadCategories(triage.DirTree(repo))
	if err != nil {
		return fmt.Errorf("error reading %s: %s", triage.CategoriesFile, err)
	}

	fileListQueue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(repo, fileListQueue)
	walker.ExcludeDirectory = []string{".git", "metadata", "profiles", "eclass"}

	errChan := make(chan error, 1)

	go func() {
		err := walker.Start()
		errChan <- err
		close(errChan)
	}()

	unmaintained := make([]string, 0)
	failed := make([]string, 0)
	for file := range fileListQueue {
		if file.Filename != "metadata.xml" {
			continue
		}
		segments := strings.Split(filepath.ToSlash(stripRoot(repo, file.Location)), "/")
		if len(segments) != 3 || !categories.Contains(segments[0]) {
			continue
		}
		if len(categoryFilter) > 0 && !slices.Contains(categoryFilter, segments[0]) {
			continue
		}
		data, err := os.ReadFile(file.Location)
		if err != nil {
			failed = append(failed, segments[0]+"/"+segments[1])
			continue
		}
		maintainers, err := triage.ParseMetadata(data)
		if err != nil {
			failed = append(failed, segments[0]+"/"+segments[1])
			continue
		}
		if len(maintainers) == 0 {
			unmaintained = append(unmaintained, segments[0]+"/"+segments[1])
		}
	}

	if err := <-errChan; err != nil {
		return fmt.Errorf("error walking repo: %s", err)
	}

	slices.Sort(unmaintained)
	if len(unmaintained) > 0 {
		_, _ = fmt.Fprintln(w, strings.Join(unmaintained, "\n"))
	}
	if len(failed) > 0 {
		slices.Sort(failed)
		return fmt.Errorf("unparseable metadata.xml in: %s", strings.Join(failed, ", "))
	}
	return nil
}
