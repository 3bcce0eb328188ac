// Package main provides operator utilities for managing FemCircle members.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"femcircle/internal/config"
	"femcircle/internal/database"
	"femcircle/internal/repository"
	"femcircle/internal/service"
)

const usage = `Usage:
  admin promote <user_id>         - Grant admin rights
  admin demote <user_id>          - Revoke admin rights
  admin list-admins               - List all admins
  admin toggle-verify <user_id>   - Flip the verified badge
  admin toggle-block <user_id>    - Block or unblock a member`

var errUsage = errors.New(usage)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := repository.NewUserRepository(db)
	c := commands{
		accounts:   service.NewAccountService(users),
		moderation: service.NewModerationService(users, repository.NewProductRepository(db)),
		out:        os.Stdout,
	}
	if err := c.run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

type commands struct {
	accounts   *service.AccountService
	moderation *service.ModerationService
	out        io.Writer
}

func (c commands) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if args[0] == "list-admins" {
		return c.listAdmins(ctx)
	}
	if len(args) < 2 {
		return errUsage
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid user id %q", args[1])
	}
	userID := uint(id)

	var ok bool
	switch args[0] {
	case "promote":
		ok, err = c.accounts.SetAdmin(ctx, userID, true)
	case "demote":
		ok, err = c.accounts.SetAdmin(ctx, userID, false)
	case "toggle-verify":
		ok, err = c.moderation.ToggleUserVerification(ctx, userID)
	case "toggle-block":
		// Operators act outside any session, so there is no self to protect.
		ok, err = c.moderation.ToggleUserBlocked(ctx, userID, 0)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user with ID %d not found", userID)
	}

	u, err := c.accounts.CurrentUser(ctx, userID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "%s: %s (ID: %d) admin=%t verified=%t blocked=%t\n",
		args[0], u.Username, u.ID, u.IsAdmin, u.IsVerified, u.IsBlocked)
	return err
}

func (c commands) listAdmins(ctx context.Context) error {
	admins, err := c.accounts.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch admins: %w", err)
	}
	if len(admins) == 0 {
		_, err = fmt.Fprintln(c.out, "No admins found in the system")
		return err
	}
	for _, a := range admins {
		if _, err := fmt.Fprintf(c.out, "ID: %d | Username: %s | Email: %s\n", a.ID, a.Username, a.Email); err != nil {
			return err
		}
	}
	return nil
}
