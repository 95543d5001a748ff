package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"orchai/cmd/internal/secret"
	"orchai/crypto"
)

const keystorePassEnv = "MM_KEYSTORE_PASS"

func runKeysCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: mmctl keys <new|show> -file <keystore>")
		return 2
	}
	fs := flag.NewFlagSet("keys "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", "", "keystore file")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	pass := secret.NewSource(keystorePassEnv, "keystore passphrase")
	var (
		addr crypto.Address
		err  error
	)
	switch args[0] {
	case "new":
		addr, err = newKeystore(*path, *force, pass)
	case "show":
		addr, err = showKeystore(*path, pass)
	default:
		fmt.Fprintf(stderr, "unknown keys command %q\n", args[0])
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}

func newKeystore(path string, force bool, pass *secret.Source) (crypto.Address, error) {
	if path == "" {
		return crypto.Address{}, fmt.Errorf("-file is required")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return crypto.Address{}, fmt.Errorf("%s already exists; pass -force to overwrite", path)
	}
	passphrase, err := pass.Get()
	if err != nil {
		return crypto.Address{}, err
	}
	key, err := crypto.NewAccountKey()
	if err != nil {
		return crypto.Address{}, err
	}
	if err := crypto.SaveToKeystore(path, key, passphrase); err != nil {
		return crypto.Address{}, err
	}
	return key.Address(), nil
}

func showKeystore(path string, pass *secret.Source) (crypto.Address, error) {
	passphrase, err := pass.Get()
	if err != nil {
		return crypto.Address{}, err
	}
	key, err := crypto.LoadFromKeystore(path, passphrase)
	if err != nil {
		return crypto.Address{}, err
	}
	return key.Address(), nil
}
