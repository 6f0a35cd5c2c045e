package cli

import (
	"fmt"

	"github.com/fqzip/fqzip/archive"
	"github.com/fqzip/fqzip/codec"
	"github.com/spf13/cobra"
)

func newVerifyCommand() *cobra.Command {
	var (
		inFile    string
		quick     bool
		perBlock  bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check archive integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := archive.VerifyGlobal
			switch {
			case quick && perBlock:
				return fmt.Errorf("fqzip: --quick and --per-block are mutually exclusive")
			case quick:
				mode = archive.VerifyQuick
			case perBlock:
				mode = archive.VerifyPerBlock
			}

			return runVerify(inFile, mode)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&inFile, "input", "i", "", "input archive file (required)")
	flags.BoolVar(&quick, "quick", false, "check only the footer magic")
	flags.BoolVar(&perBlock, "per-block", false, "decompress and re-hash every block's payload")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runVerify(inFile string, mode archive.VerifyMode) error {
	r, err := archive.Open(inFile, codec.Default)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Verify(mode); err != nil {
		return fmt.Errorf("fqzip: verification failed: %w", err)
	}

	fmt.Println("ok")

	return nil
}
