package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"artdiff/internal/color"
)

var colorCmd = &cobra.Command{
	Use:   "color VALUES MODEL TYPE",
	Short: "Print the canonical color id for a values, model and type triple",
	Long: `The color model must have been registered, for example through the
color_models list of a manifest. Equal triples always print the same id.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		spec := color.Spec{Values: args[0], Model: args[1], Type: args[2]}
		id, ok, err := svc.Colors.Canonicalize(cmd.Context(), spec)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("color model %q is not registered", spec.Model)
		}
		fmt.Println(id)
		return nil
	},
}
