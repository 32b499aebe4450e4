package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newOpsCommand(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ops [PREFIX]",
		Short: "List registered operators",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opt.newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			m, err := rt.OpMap()
			if err != nil {
				return err
			}

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			var data [][]string
			for _, name := range m.Names() {
				if !strings.HasPrefix(name, prefix) {
					continue
				}
				symbolic := "no"
				if m.IsComposable(name) {
					symbolic = "yes"
				}
				data = append(data, []string{name, symbolic})
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"NAME", "COMPOSABLE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}

func newDescribeCommand(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Show the arguments of an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opt.newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			m, err := rt.OpMap()
			if err != nil {
				return err
			}
			info, err := m.Describe(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Name:        %s\n", info.Name)
			if info.Description != "" {
				fmt.Fprintf(w, "Description: %s\n", strings.TrimSpace(info.Description))
			}
			if info.KeyVarNumArgs != "" {
				fmt.Fprintf(w, "Variadic:    %s\n", info.KeyVarNumArgs)
			}
			if info.ReturnType != "" {
				fmt.Fprintf(w, "Returns:     %s\n", info.ReturnType)
			}
			fmt.Fprintln(w)

			var data [][]string
			for i, name := range info.ArgNames {
				row := []string{name, "", ""}
				if i < len(info.ArgTypes) {
					row[1] = info.ArgTypes[i]
				}
				if i < len(info.ArgDescriptions) {
					row[2] = info.ArgDescriptions[i]
				}
				data = append(data, row)
			}

			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"ARGUMENT", "TYPE", "DESCRIPTION"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetAutoWrapText(false)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}
