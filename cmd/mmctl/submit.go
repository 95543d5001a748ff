package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"orchai/core/genesis"
)

type submitRequest struct {
	Sender   string          `json:"sender,omitempty"`
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

func runSubmitCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	gateway := fs.String("gateway", envOr("MM_GATEWAY_URL", "http://127.0.0.1:8080"), "gateway base URL")
	token := fs.String("token", os.Getenv("MM_TOKEN"), "bearer token")
	sender := fs.String("sender", "", "sender account when gateway auth is disabled")
	contract := fs.String("contract", "", "contract address")
	msg := fs.String("msg", "", "execute message JSON")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	req, err := buildSubmit(*sender, *contract, *msg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	body, err := postExecute(ctx, http.DefaultClient, *gateway, *token, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, body)
}

func buildSubmit(sender, contract, msg string) (submitRequest, error) {
	addr, err := genesis.ParseAccount(contract)
	if err != nil {
		return submitRequest{}, fmt.Errorf("-contract: %w", err)
	}
	if !json.Valid([]byte(msg)) {
		return submitRequest{}, fmt.Errorf("-msg must be valid JSON")
	}
	req := submitRequest{Contract: addr.String(), Msg: json.RawMessage(msg)}
	if strings.TrimSpace(sender) != "" {
		from, err := genesis.ParseAccount(sender)
		if err != nil {
			return submitRequest{}, fmt.Errorf("-sender: %w", err)
		}
		req.Sender = from.String()
	}
	return req, nil
}

func postExecute(ctx context.Context, client *http.Client, base, token string, req submitRequest) ([]byte, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/v1/tx/execute", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func printJSON(stdout, stderr io.Writer, raw []byte) int {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	out.WriteByte('\n')
	_, _ = stdout.Write(out.Bytes())
	return 0
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
