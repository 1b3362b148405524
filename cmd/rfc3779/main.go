// Command rfc3779 is the diagnostic CLI front end for the rfc3779 module.
package main

import "github.com/rpki-toolkit/rfc3779/internal/cli"

func main() {
	cli.Execute()
}
