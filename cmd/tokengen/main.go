// Package main provides a CLI for minting operator tokens for the approval endpoints.
// Tokens are signed with JWT_SIGNING_KEY (or --key) and are meant for local use.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	jwttoken "wealth/internal/jwt_token"
)

const defaultTokenTTL = 15 * time.Minute

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	subject := flag.String("subject", "ops@example.com", "Token subject")
	roles := flag.String("roles", jwttoken.RoleCompliance, "Comma-separated roles (client, compliance)")
	key := flag.String("key", os.Getenv("JWT_SIGNING_KEY"), "HS256 signing key; defaults to JWT_SIGNING_KEY")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "Error: signing key required (set JWT_SIGNING_KEY or pass --key)")
		os.Exit(1)
	}

	roleList := parseRoles(*roles)
	svc := jwttoken.NewJWTService(*key, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, *ttl)
	token, err := svc.Generate(*subject, roleList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "operator_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"sub":   *subject,
				"roles": roleList,
				"iss":   jwttoken.DefaultIssuer,
				"aud":   jwttoken.DefaultAudience,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Operator Token (JWT)")
	fmt.Println("====================")
	fmt.Printf("Subject:    %s\n", *subject)
	fmt.Printf("Roles:      %v\n", roleList)
	fmt.Printf("Expires In: %s\n", *ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -X POST -H \"Authorization: Bearer <token>\" http://localhost:8080/openings/<id>/compliance")
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `tokengen - mint operator tokens for the account opening API

Usage:
  tokengen [flags]

Examples:
  # Compliance officer token
  JWT_SIGNING_KEY=dev-secret tokengen

  # Token that may only confirm KYC
  tokengen --key dev-secret --roles client --subject advisor@example.com

Flags:`)
	flag.PrintDefaults()
}

func parseRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
