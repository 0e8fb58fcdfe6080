// Package cmd provides the ragbench CLI commands.
//
// Commands:
//   - serve: HTTP API server with graceful shutdown
//   - chunk: run a chunking strategy over a local file
//   - version: build and configuration information
package cmd

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Subcommands are wired here so
// tests can construct a fresh tree per case.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragbench",
		Short: "RAG pipeline workbench",
		Long: `ragbench is a workbench for retrieval-augmented generation pipelines.

It chunks documents under interchangeable strategies, embeds the chunks
with lexical or dense models, stores vectors in pluggable backends, and
answers questions through one or several LLM providers so the pipeline
stages can be compared side by side.

Run "ragbench serve" to start the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newChunkCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
