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
	"os"
	"path/filepath"
	"time"

	"github.com/bdmihai/pyphotodb/internal/backup"
	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/bdmihai/pyphotodb/internal/layout"
	"github.com/spf13/cobra"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Writes a compressed copy of the catalog database",
	Long: `Writes a consistent, zstd compressed copy of the catalog database into
backup/. Only the newest backups are kept, see backup.keep in photodb.yaml.

A backup is restored with --restore. The current catalog is saved as a new
backup before it is replaced.

photodb backup --root /photos
photodb backup --root /photos --list
photodb backup --root /photos --restore 2024-01-01-10-00-00.000.s3db.zst`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, _ := cmd.Flags().GetBool("list")
		restore, _ := cmd.Flags().GetString("restore")

		banner(cmd, "Backup")

		s, err := openSession(cmd, "backup", !list)
		if err != nil {
			return err
		}
		defer s.close()

		out := cmd.OutOrStdout()

		if list {
			names, err := backup.List(s.root.Backup())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		ctx := cmd.Context()

		db, err := catalog.Open(ctx, s.root.Database())
		if err != nil {
			return &layout.PreconditionError{What: "Database from", Path: string(s.root), Err: err}
		}
		defer db.Close()

		w := backup.NewWriter(s.root.Backup(), s.root.Cache(), s.cfg.Backup.Keep, s.log)

		if restore != "" {
			src := restore
			if !filepath.IsAbs(src) {
				src = filepath.Join(s.root.Backup(), src)
			}
			if _, err := os.Stat(src); err != nil {
				return &layout.PreconditionError{What: "Backup", Path: src, Err: layout.ErrNotExist}
			}

			fmt.Fprint(out, "Restoring catalog")

			saved, err := w.Restore(ctx, db, src, s.root.Database(), func(path string) error {
				restored, err := catalog.OpenReadOnly(ctx, path)
				if err != nil {
					return err
				}
				return restored.Close()
			}, time.Now())
			if err != nil {
				fmt.Fprintln(out)
				return err
			}

			fmt.Fprintln(out, "...done")
			fmt.Fprintln(out, "previous catalog saved as "+saved)
			return nil
		}

		fmt.Fprint(out, "Backing up catalog")

		path, err := w.Write(ctx, db, time.Now())
		if err != nil {
			fmt.Fprintln(out)
			return err
		}

		fmt.Fprintln(out, "...done")
		fmt.Fprintln(out, path)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().BoolP("list", "l", false, "list the existing backups")
	backupCmd.Flags().String("restore", "", "backup to restore, a name in backup/ or a path")
	backupCmd.MarkFlagsMutuallyExclusive("list", "restore")
}
