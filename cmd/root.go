package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemac/schemac/cmd/check"
	"github.com/schemac/schemac/cmd/generate"
	"github.com/schemac/schemac/cmd/lint"
	"github.com/schemac/schemac/cmd/patch"
	"github.com/schemac/schemac/internal/logger"
	"github.com/schemac/schemac/internal/version"
)

var debug bool

var RootCmd = &cobra.Command{
	Use:   "schemac",
	Short: "Declarative YAML schema compiler for PostgreSQL",
	Long: fmt.Sprintf(`schemac compiles a corpus of per-entity YAML schema documents into
dependency-ordered PostgreSQL DDL, and keeps foreign-key references in the
corpus consistent.

Version: %s@%s %s %s

Commands:
  generate  Compile the corpus into SQL DDL
  lint      Validate every document against the structural invariants
  check     Cross-check inferred foreign-key targets against known tables
  patch     Rewrite foreign-key targets inside source documents

Use "schemac [command] --help" for more information about a command.`,
		version.Version(), version.GetGitCommit(), version.Platform(), version.GetBuildDate()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(generate.GenerateCmd)
	RootCmd.AddCommand(lint.LintCmd)
	RootCmd.AddCommand(check.CheckCmd)
	RootCmd.AddCommand(patch.PatchCmd)
}

func setupLogger() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger.SetGlobal(slog.New(handler), debug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
