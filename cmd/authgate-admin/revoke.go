package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/calluna-labs/authgate/internal/adapters/redis"
	"github.com/calluna-labs/authgate/internal/bootstrap"
)

type revokeOptions struct {
	Cookie  string
	TokenID string
	TTL     time.Duration
}

// runRevoke places a session on the revocation list so it stops resolving
// before its natural expiry. Only effective when the running gate has
// SESSION_REVOCATION_ENABLED; a purely stateless deployment cannot cut a
// session short.
func runRevoke(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 30*time.Second)
	defer cancel()

	tokenID := opts.TokenID
	until := time.Now().Add(opts.TTL)
	if opts.Cookie != "" {
		codec, codecErr := bootstrap.BuildCodec(cmdCtx.Config.Session)
		if codecErr != nil {
			return codecErr
		}
		claims, decodeErr := codec.Decode(opts.Cookie)
		if decodeErr != nil {
			return decodeErr
		}
		tokenID = claims.ID
		until = claims.ExpiresAt.Time
	}

	client, cleanup, err := connectRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := redis.NewRevocationList(client).Revoke(ctx, tokenID, until); err != nil {
		return err
	}

	cmdCtx.Logger.Info("session revoked", "token_id", tokenID, "until", until)
	return nil
}

func parseRevokeFlags(args []string) (revokeOptions, error) {
	var opts revokeOptions
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.StringVar(&opts.Cookie, "cookie", "", "raw session cookie value to revoke")
	fs.StringVar(&opts.TokenID, "token-id", "", "session token ID to revoke (alternative to -cookie)")
	fs.DurationVar(&opts.TTL, "ttl", 12*time.Hour, "how long to keep the -token-id entry (ignored with -cookie)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Cookie == "" && opts.TokenID == "" {
		return opts, errors.New("one of -cookie or -token-id is required")
	}
	if opts.Cookie != "" && opts.TokenID != "" {
		return opts, errors.New("-cookie and -token-id are mutually exclusive")
	}
	return opts, nil
}
