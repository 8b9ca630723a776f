package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsMethodsCmd = &cobra.Command{
	Use:   "ls_methods",
	Short: "List available inference methods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsMethodsCmd)
}
