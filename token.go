package main

import (
	"fmt"
	"time"

	"PPicture/global"
	"PPicture/tools/errs"
	"PPicture/tools/security"

	"github.com/spf13/cobra"
)

// 调试用：按配置里的密钥签发令牌
func tokenCmd(cfgPath *string) *cobra.Command {
	var (
		uid     int64
		account string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uid <= 0 {
				return errs.ErrArgs.WrapMsg("--uid must be positive")
			}
			cfg, err := global.Load(*cfgPath)
			if err != nil {
				return err
			}
			opts := jwtOptions(cfg.Auth)
			if ttl > 0 {
				opts.TTL = ttl
			}
			tok, exp, err := security.Generate(opts, uid, account, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int64Var(&uid, "uid", 0, "user id")
	cmd.Flags().StringVar(&account, "account", "", "user account")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "override auth.jwt_ttl")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func jwtOptions(c global.AuthConfig) security.Options {
	opts := security.DefaultOptions([]byte(c.JwtSecret))
	if c.JwtAlg != "" {
		opts.Alg = c.JwtAlg
	}
	if c.JwtTTL > 0 {
		opts.TTL = c.JwtTTL
	}
	if c.Issuer != "" {
		opts.Issuer = c.Issuer
	}
	return opts
}
