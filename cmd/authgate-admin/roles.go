package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/calluna-labs/authgate/internal/adapters/postgres"
	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
	"github.com/calluna-labs/authgate/internal/ports"
)

const roleCommandTimeout = 30 * time.Second

type roleGetOptions struct {
	Subject string
}

type roleSetOptions struct {
	Subject string
	Role    string
}

func runRoleGet(cmdCtx *commandContext, args []string) error {
	opts, err := parseRoleGetFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, roleCommandTimeout)
	defer cancel()

	db, cleanup, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	role, err := postgres.NewRoleStore(db).Lookup(ctx, opts.Subject)
	if err != nil {
		if errors.Is(err, ports.ErrRoleNotFound) {
			return writef(os.Stdout, "no role record for subject %q; the gate resolves it from token claims\n", opts.Subject)
		}
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "SUBJECT\tROLE\n%s\t%s\n", opts.Subject, role); err != nil {
		return err
	}
	return tw.Flush()
}

func runRoleSet(cmdCtx *commandContext, args []string) error {
	opts, err := parseRoleSetFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, roleCommandTimeout)
	defer cancel()

	db, cleanup, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := postgres.NewRoleStore(db).SetRole(ctx, opts.Subject, domainauth.Role(opts.Role)); err != nil {
		return err
	}

	cmdCtx.Logger.Info("role record updated", "subject", opts.Subject, "role", opts.Role)
	return nil
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, cleanup, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}
	cmdCtx.Logger.Info("schema up to date")
	return nil
}

func parseRoleGetFlags(args []string) (roleGetOptions, error) {
	var opts roleGetOptions
	fs := flag.NewFlagSet("role-get", flag.ContinueOnError)
	fs.StringVar(&opts.Subject, "subject", "", "identity provider subject (required)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Subject == "" {
		return opts, errors.New("-subject is required")
	}
	return opts, nil
}

func parseRoleSetFlags(args []string) (roleSetOptions, error) {
	var opts roleSetOptions
	fs := flag.NewFlagSet("role-set", flag.ContinueOnError)
	fs.StringVar(&opts.Subject, "subject", "", "identity provider subject (required)")
	fs.StringVar(&opts.Role, "role", "", "role to persist: user or admin (required)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Subject == "" {
		return opts, errors.New("-subject is required")
	}
	if !domainauth.ValidRole(opts.Role) {
		return opts, fmt.Errorf("invalid -role %q (valid options: user, admin)", opts.Role)
	}
	return opts, nil
}
