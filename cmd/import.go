/*
Copyright © 2021 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/bdmihai/pyphotodb/internal/archive"
	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/bdmihai/pyphotodb/internal/event"
	"github.com/bdmihai/pyphotodb/internal/exifmeta"
	"github.com/bdmihai/pyphotodb/internal/ingest"
	"github.com/bdmihai/pyphotodb/internal/layout"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:     "import <directory>",
	Aliases: []string{"add"},
	Short:   "Imports the photos of a directory into the catalog",
	Long: `Walks the given directory and archives every photo that is not in the
catalog yet. Every photo, new or duplicate, is added to the album named
after the directory. For example:

photodb import --root /photos /media/card/Holiday

Progress is printed as one mark per photo: "." imported, "-" duplicate,
"x" failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryrun, _ := cmd.Flags().GetBool("dryrun")

		banner(cmd, "Import")

		s, err := openSession(cmd, "import", true)
		if err != nil {
			return err
		}
		defer s.close()

		importDir := filepath.Clean(args[0])
		if err := layout.CheckDir(importDir); err != nil {
			return err
		}

		ctx := cmd.Context()

		db, err := catalog.Open(ctx, s.root.Database())
		if err != nil {
			return &layout.PreconditionError{What: "Database from", Path: string(s.root), Err: err}
		}
		defer db.Close()

		var store ingest.Archive
		if dryrun {
			s.log.Info("Doing dry run")
			store = archive.NewDiscard()
		} else {
			if store, err = archive.New(s.root.Bulk()); err != nil {
				return err
			}
		}

		// Catalog writes become durable together when the run commits.
		tx, err := db.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		// Copies of a run that does not commit have no records.
		journal := archive.NewJournal(store)
		committed := false
		defer func() {
			if committed {
				return
			}
			if err := journal.Undo(); err != nil {
				s.log.Warn("removing copies of uncommitted run", zap.Error(err))
			}
		}()

		events, recorder := s.events()
		pipeline := ingest.New(tx, journal, exifmeta.New(s.log), recorder,
			ingest.WithLogger(s.log),
			ingest.WithExtensions(s.cfg.Extensions),
		)

		out := cmd.OutOrStdout()
		fmt.Fprint(out, "Importing photos")

		stats, err := pipeline.Run(ctx, importDir)
		if err != nil {
			fmt.Fprintln(out)
			return err
		}

		if !dryrun {
			if err := tx.Commit(); err != nil {
				fmt.Fprintln(out)
				return fmt.Errorf("committing catalog: %w", err)
			}
			committed = true
		}
		fmt.Fprintln(out, "done")

		summary := events.Summary(event.Imported, event.Duplicate, event.Filtered, event.Failed)
		if dryrun {
			summary = "dry run, nothing written: " + summary
		}
		fmt.Fprintln(out, summary)

		s.log.Info("Finished importing "+importDir,
			zap.Bool("dryrun", dryrun),
			zap.Int("imported", stats.Imported),
			zap.Int("duplicates", stats.Duplicates),
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolP("dryrun", "d", false, "report what would be imported without writing anything")
}
