// Command fqzip archives and restores FASTQ files using block-compressed,
// randomly-accessible fqzip archives.
package main

import (
	"fmt"
	"os"

	"github.com/fqzip/fqzip/cli"
	"github.com/fqzip/fqzip/errs"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.KindOf(err).ExitCode())
	}
}
