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

	"github.com/bdmihai/pyphotodb/internal/config"
	"github.com/bdmihai/pyphotodb/internal/layout"
	"github.com/bdmihai/pyphotodb/internal/logging"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates a new catalog in an empty directory",
	Long: `Creates the catalog layout inside the empty directory given by --root:

  bulk/    one canonical copy of every photo
  sort/    links by date and by album
  log/     one log file per run
  backup/
  cache/

together with the empty catalog database and a default settings file.

photodb init --root /photos`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		banner(cmd, "Create")

		root, err := layout.NewRoot(rootPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, "Creating catalog")

		var created []string
		err = root.Create(cmd.Context(), func(step string) {
			created = append(created, step)
			fmt.Fprint(out, ".")
		})
		if err != nil {
			fmt.Fprintln(out)
			return err
		}
		fmt.Fprintln(out, "done")

		// the log directory exists only now
		logCfg := config.Default().Log
		logCfg.Level = "debug"
		run, err := logging.New(root.Log(), "create", logCfg)
		if err != nil {
			return err
		}
		defer run.Close()

		log := run.Logger

		log.Info("Database: " + root.Database())
		for _, step := range created {
			log.Debug("created " + filepath.Join(string(root), step))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
