// Command mmctl is the operator client for mmd: it mints gateway tokens,
// submits transactions over HTTP and runs smart queries over gRPC.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}
	switch args[0] {
	case "address":
		return runAddressCommand(args[1:], stdout, stderr)
	case "keys":
		return runKeysCommand(args[1:], stdout, stderr)
	case "token":
		return runTokenCommand(args[1:], stdout, stderr)
	case "submit":
		return runSubmitCommand(args[1:], stdout, stderr)
	case "query":
		return runQueryCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: mmctl <command> [flags]

Commands:
  address  Print the address of an "@name" account
  keys     Create or inspect an encrypted account keystore
  token    Mint a gateway bearer token
  submit   Execute a contract message through the gateway
  query    Run a smart query over gRPC`)
}
