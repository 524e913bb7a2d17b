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

	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/bdmihai/pyphotodb/internal/event"
	"github.com/bdmihai/pyphotodb/internal/layout"
	"github.com/bdmihai/pyphotodb/internal/link"
	"github.com/spf13/cobra"
)

// linkCmd represents the link command
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Links the archived photos by date or by album",
	Long: `Creates symbolic links to the archived photos under sort/by_date/<YYYY-MM-DD>/
or sort/by_album/<album>/. Links that already exist are skipped.

photodb link --root /photos --by date`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")

		banner(cmd, "Link")

		s, err := openSession(cmd, "link", false)
		if err != nil {
			return err
		}
		defer s.close()

		criterion, err := link.ParseCriterion(by)
		if err != nil {
			return err
		}
		s.log.Info("Linking by: " + by)

		ctx := cmd.Context()

		db, err := catalog.OpenReadOnly(ctx, s.root.Database())
		if err != nil {
			return &layout.PreconditionError{What: "Database from", Path: string(s.root), Err: err}
		}
		defer db.Close()

		events, recorder := s.events()
		projector := link.NewProjector(db, s.root.Bulk(), s.root.Sort(), recorder, s.log)

		out := cmd.OutOrStdout()
		fmt.Fprint(out, "Linking photos")

		if _, err := projector.Project(ctx, criterion); err != nil {
			fmt.Fprintln(out)
			return err
		}

		fmt.Fprintln(out, "done")
		fmt.Fprintln(out, events.Summary(event.Linked, event.LinkExists, event.Failed))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)

	linkCmd.Flags().String("by", "", "criterion used to link the photos: date or album")
	linkCmd.MarkFlagRequired("by")
}
