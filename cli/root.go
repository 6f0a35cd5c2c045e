package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the fqzip command tree (§6.6).
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fqzip",
		Short:         "Archive and restore FASTQ files with random-access block compression",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newCompressCommand())
	root.AddCommand(newDecompressCommand())
	root.AddCommand(newInfoCommand())
	root.AddCommand(newVerifyCommand())

	return root
}

// Execute runs the fqzip command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
