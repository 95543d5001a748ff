package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"orchai/cmd/internal/secret"
	"orchai/core/genesis"
	gwconfig "orchai/gateway/config"
)

const secretEnv = "MM_GATEWAY_SECRET"

type tokenOptions struct {
	Subject  string
	Scopes   []string
	Issuer   string
	Audience string
	TTL      time.Duration
}

func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("sub", "", "account the token acts for (@name or bech32)")
	scopes := fs.String("scope", gwconfig.ScopeExecute, "space separated scopes")
	issuer := fs.String("iss", "", "issuer claim")
	audience := fs.String("aud", "", "audience claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	src := secret.NewSource(secretEnv, "gateway HMAC secret")
	key, err := src.Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	signed, err := mintToken([]byte(key), tokenOptions{
		Subject:  *subject,
		Scopes:   strings.Fields(*scopes),
		Issuer:   *issuer,
		Audience: *audience,
		TTL:      *ttl,
	}, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, signed)
	return 0
}

func mintToken(key []byte, opts tokenOptions, now time.Time) (string, error) {
	if strings.TrimSpace(opts.Subject) == "" {
		return "", fmt.Errorf("-sub is required")
	}
	addr, err := genesis.ParseAccount(opts.Subject)
	if err != nil {
		return "", err
	}
	if opts.TTL <= 0 {
		return "", fmt.Errorf("-ttl must be positive")
	}
	claims := jwt.MapClaims{
		"sub":   addr.String(),
		"scope": strings.Join(opts.Scopes, " "),
		"iat":   now.Unix(),
		"exp":   now.Add(opts.TTL).Unix(),
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
