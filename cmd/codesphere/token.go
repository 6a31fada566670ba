package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/auth"
	"github.com/sakif/codesphere/internal/config"
)

var (
	tokenSubjectFlag string
	tokenTTLFlag     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	Long: `Issue a bearer token signed with auth.token_secret. Send it as
"Authorization: Bearer <token>", or as ?token= on the WebSocket URL.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSubjectFlag, "subject", "cli", "Who the token is for")
	tokenCmd.Flags().DurationVar(&tokenTTLFlag, "ttl", auth.DefaultTTL, "How long the token is valid")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if cfg.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret is not set; the API accepts requests without a token")
	}

	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret)
	if err != nil {
		return err
	}
	token, err := tokens.Generate(tokenSubjectFlag, tokenTTLFlag)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
