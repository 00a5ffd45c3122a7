// Command enginectl inspects and operates a running engine hub over its
// HTTP API.
//
//	enginectl engines
//	enginectl status witsy
//	enginectl models witsy --kind chat
//	enginectl refresh witsy
//	enginectl agents
//	enginectl streams
//	enginectl cancel <stream-id>
//
// The server URL and API key default to ENGINEHUB_URL and ENGINEHUB_API_KEY.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Getenv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
