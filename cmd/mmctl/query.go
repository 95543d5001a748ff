package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"orchai/core/genesis"
	"orchai/rpc"
)

func runQueryCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	target := fs.String("grpc", envOr("MM_GRPC_ADDR", "127.0.0.1:9090"), "gRPC address")
	contract := fs.String("contract", "", "contract address; empty prints the latest block")
	msg := fs.String("msg", "", "query message JSON")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	conn, err := grpc.NewClient(*target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := smartQuery(ctx, rpc.NewQueryClient(conn), *contract, *msg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, res)
}

func smartQuery(ctx context.Context, client *rpc.QueryClient, contract, msg string) (json.RawMessage, error) {
	if contract == "" {
		return client.Block(ctx)
	}
	addr, err := genesis.ParseAccount(contract)
	if err != nil {
		return nil, fmt.Errorf("-contract: %w", err)
	}
	if !json.Valid([]byte(msg)) {
		return nil, fmt.Errorf("-msg must be valid JSON")
	}
	return client.Smart(ctx, addr, json.RawMessage(msg))
}
