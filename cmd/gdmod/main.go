// Command gdmod inspects string identities and drives Modelica components.
package main

import (
	"fmt"
	"os"

	"github.com/bondlegend4/modelica-gdext/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
