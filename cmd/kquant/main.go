// kquant - parallel k-means colour quantisation
//
// kquant reduces an image to a fixed number of representative colours and
// writes the quantised image alongside the original.
package main

import (
	"os"

	"github.com/jmylchreest/kquant/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
