package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"langsift/internal/version"
)

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}
			if f == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), version.Get())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "human", "Output format (json, human)")
	return cmd
}
