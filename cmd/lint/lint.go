package lint

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemac/schemac/internal/color"
	"github.com/schemac/schemac/internal/ignore"
	"github.com/schemac/schemac/internal/spec"
)

var (
	dir     string
	strict  bool
	noColor bool
)

var LintCmd = &cobra.Command{
	Use:          "lint",
	Short:        "Validate the corpus without generating SQL",
	Long:         "Run the structural validator over every schema document: naming pattern, stem agreement, duplicate and primary-key rules, nullability conflicts and unresolvable _id references. Exits 1 when violations are found, 2 when the corpus cannot be read.",
	RunE:         runLint,
	SilenceUsage: true,
}

func init() {
	LintCmd.Flags().StringVar(&dir, "dir", "", "Corpus directory holding the schema documents (required)")
	LintCmd.Flags().BoolVar(&strict, "strict", false, "Treat unparsable documents as violations")
	LintCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	LintCmd.MarkFlagRequired("dir")
}

func runLint(cmd *cobra.Command, args []string) error {
	c := color.New(!noColor)

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

	failed := false
	for _, pe := range corpus.ParseErrors {
		fmt.Printf("%s: %s\n", c.Header(pe.File), c.Warn(fmt.Sprintf("parse error: %v", pe.Err)))
		if strict {
			failed = true
		}
	}

	violations := spec.ValidateCorpus(corpus)
	for _, v := range violations {
		fmt.Println(c.FormatFinding(v.File, v.Table, v.Msg))
	}

	if len(violations) > 0 || failed {
		fmt.Printf("\n%s\n", c.Fail(fmt.Sprintf("%d violation(s) in %d document(s)", len(violations), len(corpus.Documents))))
		os.Exit(1)
	}
	fmt.Println(c.OK(fmt.Sprintf("%d document(s) clean", len(corpus.Documents))))
	return nil
}
