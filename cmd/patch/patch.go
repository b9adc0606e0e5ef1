package patch

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemac/schemac/internal/fkpatch"
	"github.com/schemac/schemac/internal/logger"
)

var (
	dir     string
	patches string
	file    string
	field   string
	target  string
)

var PatchCmd = &cobra.Command{
	Use:          "patch",
	Short:        "Write missing ref_table declarations back into the corpus",
	Long:         "Apply a patch plan (or a single --file/--field/--target triple) to the corpus: each named field gets its ref_table set in place. Files are rewritten idempotently and a .bak copy of the original is kept next to each changed file.",
	RunE:         runPatch,
	SilenceUsage: true,
}

func init() {
	PatchCmd.Flags().StringVar(&dir, "dir", "", "Corpus directory holding the schema documents (required)")
	PatchCmd.Flags().StringVar(&patches, "patches", "", "Patch plan file: one file,field,target triple per YAML document")
	PatchCmd.Flags().StringVar(&file, "file", "", "Single patch: document path relative to --dir")
	PatchCmd.Flags().StringVar(&field, "field", "", "Single patch: field technical name")
	PatchCmd.Flags().StringVar(&target, "target", "", "Single patch: referenced table name")
	PatchCmd.MarkFlagRequired("dir")
}

func runPatch(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	var targets []fkpatch.Target
	switch {
	case patches != "":
		var err error
		targets, err = fkpatch.LoadPlan(patches)
		if err != nil {
			return err
		}
	case field != "" && target != "":
		targets = []fkpatch.Target{{File: file, Field: field, Table: target}}
	default:
		return fmt.Errorf("either --patches or both --field and --target are required")
	}

	summary, err := fkpatch.Apply(dir, targets)
	if err != nil {
		return err
	}

	for _, t := range summary.Unmatched {
		log.Warn("field not found anywhere in corpus", "field", t.Field, "target", t.Table)
	}
	fmt.Printf("patched %d field(s) across %d file(s)\n", summary.FieldsPatched, summary.FilesChanged)
	if len(summary.Unmatched) > 0 {
		fmt.Printf("%d patch target(s) matched no document\n", len(summary.Unmatched))
		os.Exit(1)
	}
	return nil
}
