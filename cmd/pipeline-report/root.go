package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline-report",
		Short: "Deal pipeline reporting tools",
	}
	cmd.AddCommand(newBoardCmd())
	return cmd
}

func execute() {
	_ = newRootCmd().Execute()
}

func main() {
	execute()
}
