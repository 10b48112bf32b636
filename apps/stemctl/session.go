package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/session"
)

func (cli *commandLine) login(ctx context.Context, scope, email, pwd string) error {
	s, err := cli.openSession(ctx, scope)
	if err != nil {
		return err
	}
	defer cli.close(s)

	res, err := s.client.Login(ctx, email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s; landing on %s\n", res.Role, res.Landing)
	return nil
}

func (cli *commandLine) signup(ctx context.Context, scope string, req auth.SignupRequest) error {
	s, err := cli.openSession(ctx, scope)
	if err != nil {
		return err
	}
	defer cli.close(s)

	res, err := s.client.Signup(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Signed up as %s; landing on %s\n", res.Role, res.Landing)
	return nil
}

func (cli *commandLine) whoami(ctx context.Context, scope string) error {
	s, err := cli.openSession(ctx, scope)
	if err != nil {
		return err
	}
	defer cli.close(s)

	// the command ends right away: settle the expiry here rather than racing the timer
	s.timer.CancelCurrent()
	expires, ok := s.client.ExpiresAt()
	if !ok || !expires.After(session.NowFunc()) {
		fmt.Fprintln(cli.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(cli.out, "%s (session expires at %s)\n", s.client.CurrentRole(), expires.Format(time.RFC3339))
	return nil
}

func (cli *commandLine) logout(ctx context.Context, scope string) error {
	s, err := cli.openSession(ctx, scope)
	if err != nil {
		return err
	}
	defer cli.close(s)

	s.client.Logout(ctx)
	fmt.Fprintln(cli.out, "Logged out")
	return nil
}
