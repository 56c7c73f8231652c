package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/importer"
	"github.com/SAP-F-2025/exam-service/pkg"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return errors.New("migrate requires STORAGE_DRIVER=postgres")
			}
			logger := newLogger(cfg)

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			}()

			if err := pkg.Migrate(db); err != nil {
				return err
			}
			logger.Info("Database schema is up to date")
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create exams from a YAML file on behalf of a teacher",
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "YAML file with an exams list (required)")
	f.String("teacher-id", "", "ID of the teacher who will own the exams (required)")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("teacher-id")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	teacherID, _ := cmd.Flags().GetString("teacher-id")

	reqs, err := importer.LoadFile(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	exams, err := app.services.Exam().Import(ctx, reqs, teacherID)
	if err != nil {
		return fmt.Errorf("failed to import exams: %w", err)
	}

	for _, exam := range exams {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d questions\n", exam.ID, exam.Title, len(exam.Questions))
	}
	app.logger.Info("Imported exams", "count", len(exams), "teacher_id", teacherID, "file", path)
	return nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the results of one exam as an xlsx workbook",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.Uint("exam-id", 0, "Exam to export (required)")
	f.String("as", "", "ID of the owning teacher or an admin (required)")
	f.StringP("output", "o", "", "Output file path (default: derived from the exam title, - for stdout)")

	_ = cmd.MarkFlagRequired("exam-id")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	examID, _ := cmd.Flags().GetUint("exam-id")
	userID, _ := cmd.Flags().GetString("as")
	output, _ := cmd.Flags().GetString("output")

	ctx := context.Background()
	app, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	var buf bytes.Buffer
	filename, err := app.services.Export().ExportExamResults(ctx, examID, userID, &buf)
	if err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}

	if output == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if output == "" {
		output = filename
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	app.logger.Info("Exported results", "exam_id", examID, "file", output, "bytes", buf.Len())
	return nil
}
