// Executable verifier answering relying sites' assertion verification
// requests. See README for usage instructions.
package main

import (
	"github.com/rodneysullivan/browserid/cli"
	"github.com/rodneysullivan/browserid/cli/browseridverifier/internal/cmd"
)

func main() {
	cli.Execute(cmd.RootCmd)
}
