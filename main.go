package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gentoo/pr-assign/internal/app"
	"github.com/gentoo/pr-assign/internal/config"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func ignoreError[V any, E error](res V, _ E) V {
	return res
}

var (
	WarningBuffer = bytes.NewBuffer([]byte{})
	InfoBuffer    = bytes.NewBuffer([]byte{})
)

type Flags struct {
	TokenFile       *string
	Repo            *string
	Username        *string
	DevMapping      *string
	ProxiedMapping  *string
	ProjMapping     *string
	BugzillaURL     *string
	BugzillaKeyFile *string
	RepoDir         *string
	Ref             *string
	ConfigDir       *string
	PR              *int
	Timeout         *time.Duration
	DryRun          *bool
	Verbose         *bool
}

var flags = &Flags{
	TokenFile:       flag.String("token-file", getEnv("GITHUB_TOKEN_FILE", ""), "File containing the GitHub token"),
	Repo:            flag.String("repo", getEnv("GITHUB_REPO", ""), "GitHub repo name (owner/repo)"),
	Username:        flag.String("username", getEnv("GITHUB_USERNAME", ""), "GitHub login of the bot (defaults to the token owner)"),
	DevMapping:      flag.String("dev-mapping", getEnv("GITHUB_DEV_MAPPING", ""), "Developer e-mail to GitHub login mapping"),
	ProxiedMapping:  flag.String("proxied-mapping", getEnv("GITHUB_PROXIED_MAINT_MAPPING", ""), "Proxied maintainer e-mail to GitHub login mapping"),
	ProjMapping:     flag.String("proj-mapping", getEnv("GITHUB_PROJ_MAPPING", ""), "Project e-mail to GitHub team mapping"),
	BugzillaURL:     flag.String("bugzilla-url", getEnv("BUGZILLA_URL", ""), "Bugzilla base URL (overrides the config file)"),
	BugzillaKeyFile: flag.String("bugzilla-key-file", getEnv("BUGZILLA_APIKEY_FILE", ""), "File containing the Bugzilla API key"),
	RepoDir:         flag.String("dir", getEnv("GENTOO_REPO_DIR", ""), "Path to the reference ebuild repository"),
	Ref:             flag.String("ref", getEnv("GENTOO_REPO_REF", ""), "Read the reference tree at this git ref of -dir"),
	ConfigDir:       flag.String("config", getEnv("PR_ASSIGN_CONFIG_DIR", "."), "Directory containing pr-assign.toml"),
	PR:              flag.Int("pr", ignoreError(strconv.Atoi(getEnv("PR_ASSIGN_PR", "0"))), "Only triage this pull request"),
	Timeout:         flag.Duration("timeout", 2*time.Minute, "Timeout of a single GitHub or Bugzilla request"),
	DryRun:          flag.Bool("dry-run", false, "Print the reports without changing anything"),
	Verbose:         flag.Bool("v", ignoreError(strconv.ParseBool(getEnv("PR_ASSIGN_VERBOSE", "0"))), "Verbose output"),
}

// shouldFail should always be true for errors that are not recoverable
func errorAndExit(shouldFail bool, format string, args ...interface{}) {
	_, err := WarningBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	if *flags.Verbose {
		_, err := InfoBuffer.WriteTo(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
		}
	}
	fmt.Fprintf(os.Stderr, format, args...)
	if shouldFail {
		os.Exit(1)
	} else {
		os.Exit(0)
	}
}

func printDebug(format string, args ...interface{}) {
	if *flags.Verbose {
		fmt.Fprintf(InfoBuffer, format, args...)
	}
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(WarningBuffer, format, args...)
}

func initFlags(flags *Flags) error {
	badFlags := make([]string, 0, 6)
	required := []struct {
		name  string
		value *string
	}{
		{"token-file", flags.TokenFile},
		{"repo", flags.Repo},
		{"dev-mapping", flags.DevMapping},
		{"proxied-mapping", flags.ProxiedMapping},
		{"proj-mapping", flags.ProjMapping},
		{"bugzilla-key-file", flags.BugzillaKeyFile},
		{"dir", flags.RepoDir},
	}
	for _, r := range required {
		if r.value == nil || *r.value == "" {
			badFlags = append(badFlags, r.name)
		}
	}
	if len(badFlags) > 0 {
		return fmt.Errorf("Required flags or environment variables not set: %s", badFlags)
	}
	return nil
}

func newAppConfig(flags *Flags) (app.Config, error) {
	token, err := config.ReadSecret(*flags.TokenFile)
	if err != nil {
		return app.Config{}, fmt.Errorf("ReadSecret Error: %v", err)
	}
	apiKey, err := config.ReadSecret(*flags.BugzillaKeyFile)
	if err != nil {
		return app.Config{}, fmt.Errorf("ReadSecret Error: %v", err)
	}
	mappings, err := config.LoadMappings(*flags.DevMapping, *flags.ProxiedMapping, *flags.ProjMapping)
	if err != nil {
		return app.Config{}, err
	}
	return app.Config{
		Token:          token,
		Username:       *flags.Username,
		Repo:           *flags.Repo,
		RepoDir:        *flags.RepoDir,
		Ref:            *flags.Ref,
		ConfigDir:      *flags.ConfigDir,
		PR:             *flags.PR,
		DryRun:         *flags.DryRun,
		Verbose:        *flags.Verbose,
		Timeout:        *flags.Timeout,
		BugzillaURL:    *flags.BugzillaURL,
		BugzillaAPIKey: apiKey,
		Mappings:       mappings,
		InfoBuffer:     InfoBuffer,
		WarningBuffer:  WarningBuffer,
	}, nil
}

func printOutcomes(w io.Writer, outcomes []*app.Outcome, dryRun bool) {
	for _, outcome := range outcomes {
		fmt.Fprintln(w, outcome)
		if dryRun && !outcome.Skipped {
			fmt.Fprintf(w, "%s\n\n", outcome.Comment)
		}
	}
}

func main() {
	flag.Parse()
	if *flags.RepoDir == "" && flag.NArg() > 0 {
		*flags.RepoDir = flag.Arg(0)
	}
	if err := initFlags(flags); err != nil {
		errorAndExit(true, "%v\n", err)
	}

	cfg, err := newAppConfig(flags)
	if err != nil {
		errorAndExit(true, "%v\n", err)
	}
	printDebug("Triaging %s using %s\n", cfg.Repo, cfg.RepoDir)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		errorAndExit(true, "NewApp Error: %v\n", err)
	}
	outcomes, err := a.Run()
	printOutcomes(os.Stdout, outcomes, cfg.DryRun)
	if app.IsTimeout(err) {
		errorAndExit(false, "-- Exiting due to socket timeout --\n")
	}
	if err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			printWarning("%d pull requests failed\n", len(joined.Unwrap()))
		}
		errorAndExit(true, "Run Error: %v\n", err)
	}

	_, err = WarningBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	if *flags.Verbose {
		_, err = InfoBuffer.WriteTo(os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
		}
	}
}
