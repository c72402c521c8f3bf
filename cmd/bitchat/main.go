// Command bitchat is a thin terminal client exercising the mesh engine's
// upper-layer API.
package main

import (
	"fmt"
	"os"

	"github.com/permissionlesstech/bitchat-mesh/cmd/bitchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
