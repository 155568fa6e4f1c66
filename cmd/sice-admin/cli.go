package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/noah-isme/sice-api/internal/models"
)

var errUsage = errors.New("usage requested")

type migrator interface {
	Up() error
	Down() error
	Status() error
}

type adminCreator interface {
	Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

type photoSweeper interface {
	SweepOrphans(ctx context.Context, age time.Duration) (int, error)
}

// commandLine dispatches sice-admin sub-commands. readPassword reads one
// line without echo; it is swapped out in tests.
type commandLine struct {
	migrations   migrator
	users        adminCreator
	photos       photoSweeper
	readPassword func() ([]byte, error)
	out          io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  sice-admin migrate up|down|status")
	fmt.Fprintln(cli.out, "  sice-admin create-admin --email EMAIL --name NAME   (password is prompted)")
	fmt.Fprintln(cli.out, "  sice-admin sweep-photos [--older-than 24h]")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errUsage
	}

	switch args[0] {
	case "migrate":
		return cli.migrate(args[1:])
	case "create-admin":
		return cli.createAdmin(ctx, args[1:])
	case "sweep-photos":
		return cli.sweepPhotos(ctx, args[1:])
	default:
		cli.printUsage()
		return errUsage
	}
}

func (cli *commandLine) migrate(args []string) error {
	if len(args) != 1 {
		cli.printUsage()
		return errUsage
	}
	switch args[0] {
	case "up":
		if err := cli.migrations.Up(); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "migrations applied")
		return nil
	case "down":
		if err := cli.migrations.Down(); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "last migration rolled back")
		return nil
	case "status":
		return cli.migrations.Status()
	default:
		cli.printUsage()
		return errUsage
	}
}

func (cli *commandLine) createAdmin(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	flags.SetOutput(cli.out)
	email := flags.String("email", "", "e-mail the administrator logs in with")
	name := flags.String("name", "", "full name of the administrator")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" || strings.TrimSpace(*name) == "" {
		flags.Usage()
		return errUsage
	}

	fmt.Fprint(cli.out, "Password: ")
	first, err := cli.readPassword()
	fmt.Fprintln(cli.out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(cli.out, "Confirm password: ")
	second, err := cli.readPassword()
	fmt.Fprintln(cli.out)
	if err != nil {
		return fmt.Errorf("reading password confirmation: %w", err)
	}
	if len(first) == 0 {
		return errors.New("password is empty")
	}
	if !bytes.Equal(first, second) {
		return errors.New("passwords do not match")
	}

	user, err := cli.users.Create(ctx, models.CreateUserRequest{
		Email:    *email,
		Password: string(first),
		FullName: *name,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "administrator %s created (id %s)\n", user.Email, user.ID)
	return nil
}

func (cli *commandLine) sweepPhotos(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("sweep-photos", pflag.ContinueOnError)
	flags.SetOutput(cli.out)
	age := flags.Duration("older-than", 24*time.Hour, "only remove files older than this")
	if err := flags.Parse(args); err != nil {
		return err
	}
	removed, err := cli.photos.SweepOrphans(ctx, *age)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "removed %d orphaned photo(s)\n", removed)
	return nil
}
