// Command ssoctl is a relying client for the SSO handoff gateway. It logs in,
// mints SSO tokens and redeems them the way a web client would.
package main

import (
	"os"
)

// Set at build time.
var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
