package generate

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemac/schemac/internal/compile"
	"github.com/schemac/schemac/internal/fingerprint"
	"github.com/schemac/schemac/internal/ignore"
	"github.com/schemac/schemac/internal/logger"
	"github.com/schemac/schemac/internal/spec"
)

var (
	dir           string
	out           string
	schema        string
	owner         string
	withDrop      bool
	varcharLength int
	tablespace    string
	extensions    []string
	strict        bool
	verify        bool
)

var GenerateCmd = &cobra.Command{
	Use:          "generate",
	Short:        "Compile the corpus into SQL DDL",
	Long:         "Compile every schema document under --dir into PostgreSQL DDL, emitted in five dependency-ordered phases: extensions and enums, tables, non-FK constraints, foreign keys, then indexes, comments and ownership.",
	RunE:         runGenerate,
	SilenceUsage: true,
}

func init() {
	GenerateCmd.Flags().StringVar(&dir, "dir", "", "Corpus directory holding the schema documents (required)")
	GenerateCmd.Flags().StringVar(&out, "out", "build.sql", "Output file path, or - for stdout")
	GenerateCmd.Flags().StringVar(&schema, "schema", "public", "Default schema for entities without an override")
	GenerateCmd.Flags().StringVar(&owner, "owner", "", "Owner for every generated object (optional)")
	GenerateCmd.Flags().BoolVar(&withDrop, "with-drop", false, "Emit DROP TABLE IF EXISTS ... CASCADE before each table")
	GenerateCmd.Flags().IntVar(&varcharLength, "default-varchar-length", 255, "Length applied to varchar/char columns that declare none")
	GenerateCmd.Flags().StringVar(&tablespace, "tablespace", "", "Tablespace for every generated table (optional)")
	GenerateCmd.Flags().StringSliceVar(&extensions, "extensions", nil, "Extensions to create, comma separated (e.g. pgcrypto,uuid-ossp)")
	GenerateCmd.Flags().BoolVar(&strict, "strict", false, "Abort on structural violations and unknown types instead of skipping the entity")
	GenerateCmd.Flags().BoolVar(&verify, "verify", false, "Parse every emitted statement with the PostgreSQL parser")
	GenerateCmd.MarkFlagRequired("dir")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	corpus, err := spec.LoadDir(dir, nil)
	if err != nil {
		return err
	}
	ignoreCfg, err := ignore.Load(dir)
	if err != nil {
		return fmt.Errorf("read ignore file: %w", err)
	}
	if n := ignoreCfg.Apply(corpus, dir); n > 0 {
		log.Debug("ignored documents", "count", n)
	}
	for _, pe := range corpus.ParseErrors {
		if strict {
			return fmt.Errorf("parse %s: %w", pe.File, pe.Err)
		}
		log.Warn("skipping unparsable document", "file", pe.File, "error", pe.Err)
	}

	// Validation always completes a full pass so one invocation surfaces
	// every defect; only then does strict mode abort.
	violations := spec.ValidateCorpus(corpus)
	for _, v := range violations {
		log.Warn("validation", "table", v.Table, "file", v.File, "violation", v.Msg)
	}
	if strict && len(violations) > 0 {
		return fmt.Errorf("%d validation violation(s), aborting (strict mode)", len(violations))
	}

	opts := compile.Options{
		DefaultSchema:        schema,
		Owner:                owner,
		WithDrop:             withDrop,
		DefaultVarcharLength: varcharLength,
		Tablespace:           tablespace,
		Extensions:           extensions,
		Strict:               strict,
	}

	reg := spec.BuildRegistry(corpus)
	result, err := compile.NewEmitter(opts, reg).Emit(corpus)
	if err != nil {
		return err
	}
	for _, ee := range result.Errors {
		log.Warn("entity skipped", "table", ee.Table, "file", ee.File, "error", ee.Err)
	}

	if verify {
		verifyErrs := compile.Verify(result)
		for _, ve := range verifyErrs {
			stmt := firstLine(ve.Statement)
			if logger.IsDebug() {
				stmt = ve.Statement
			}
			log.Error("generated statement does not parse", "phase", ve.Phase+1, "error", ve.Err,
				"statement", stmt)
		}
		if len(verifyErrs) > 0 {
			return fmt.Errorf("%d generated statement(s) failed syntax verification", len(verifyErrs))
		}
	}

	sql := result.SQL()
	if out == "-" {
		fmt.Print(sql)
		return nil
	}

	fp := fingerprint.Compute(sql)
	if prev, err := os.ReadFile(out); err == nil {
		if fingerprint.Compare(fingerprint.Compute(string(prev)), fp) == nil {
			log.Info("output unchanged since previous build", "out", out)
			fmt.Println(fp.String())
			return nil
		}
	}
	if err := os.WriteFile(out, []byte(sql), 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("generated", "out", out, "tables", reg.Len(),
		"statements", len(result.Statements()))
	fmt.Println(fp.String())
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
