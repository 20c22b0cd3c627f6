// Command fetchmeter downloads remote artifacts with progress reporting
// and operation tracing.
package main

import (
	"os"

	"github.com/Azzadd/fetchmeter/cmd/fetchmeter/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
