package check

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemac/schemac/internal/color"
	"github.com/schemac/schemac/internal/fkcheck"
	"github.com/schemac/schemac/internal/ignore"
	"github.com/schemac/schemac/internal/logger"
	"github.com/schemac/schemac/internal/spec"
)

var (
	dir        string
	reportPath string
	noColor    bool
)

var CheckCmd = &cobra.Command{
	Use:          "check",
	Short:        "Cross-check foreign-key targets against the corpus",
	Long:         "Run the FK pattern matcher over every field in the corpus and report each inferred target that does not resolve to a known table. Exits 0 when clean, 1 when targets are missing or documents fail to parse, 2 when the corpus itself cannot be read.",
	RunE:         runCheck,
	SilenceUsage: true,
}

func init() {
	CheckCmd.Flags().StringVar(&dir, "dir", "", "Corpus directory holding the schema documents (required)")
	CheckCmd.Flags().StringVar(&reportPath, "report", "fk_report.txt", "Report file path, or - to skip writing it")
	CheckCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	CheckCmd.MarkFlagRequired("dir")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	corpus, err := spec.LoadDir(dir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	ignoreCfg, err := ignore.Load(dir)
	if err != nil {
		return fmt.Errorf("read ignore file: %w", err)
	}
	ignoreCfg.Apply(corpus, dir)

	reg := spec.BuildRegistry(corpus)
	report := fkcheck.Run(corpus, reg)

	if reportPath != "-" {
		f, err := os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", reportPath, err)
		}
		if err := report.Render(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", reportPath, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write %s: %w", reportPath, err)
		}
		log.Info("report written", "path", reportPath)
	}

	fmt.Print(report.Summary())
	c := color.New(!noColor)
	if !report.Clean() {
		fmt.Println(c.Fail(fmt.Sprintf("check failed: %d missing target(s), %d parse error(s)",
			len(report.Missing), len(report.ParseErrors))))
		os.Exit(1)
	}
	fmt.Println(c.OK("check passed"))
	return nil
}
