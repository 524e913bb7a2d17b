package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is printed in the banner.
var Version = "2.0.0"

var (
	// Used for flags.
	rootPath string
	cfgFile  string
	noLogo   bool

	rootCmd = &cobra.Command{
		Use:   "photodb",
		Short: "Photo archive utility",
		Long: `PhotoDB keeps a personal photo archive. It stores one canonical copy
of every photo, skips duplicates by content and builds browsable views of
the archive by date or by album.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", "", "catalog root directory")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is <root>/photodb.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noLogo, "no-logo", false, "do not show logo")
	rootCmd.MarkPersistentFlagRequired("root")
}

// Execute executes the root command. Errors are printed to stderr; a
// non-nil return means the process should exit with status 1.
func Execute() error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
	}

	return err
}

func banner(cmd *cobra.Command, name string) {
	if noLogo {
		return
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "PhotoDB %s Version %s\n", name, Version)
	fmt.Fprintln(out, "Copyright (C) B.D.Mihai. All rights reserved.")
}
