// Command commentctl is a small command-line client for the comments API.
//
// Usage:
//
//	commentctl [-server URL] [-token TOKEN] <command> [arguments]
//
// Commands:
//
//	register <username>             create the user (or log in) and print the token
//	whoami                          print the username the token belongs to
//	exists <username>               report whether the user exists
//	list <threadId>                 print the comments of a thread
//	post <threadId> <text>          post a comment
//	delete <threadId> <commentId>   delete one of your comments
//
// COMMENTS_SERVER and COMMENTS_TOKEN supply defaults for -server and -token.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/patric-chuzhbe/thesiscomments/internal/client"
)

const defaultServer = "http://localhost:8080"

var errUsage = errors.New("usage: commentctl [-server URL] [-token TOKEN] register|whoami|exists|list|post|delete [arguments]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "commentctl:", err)
	os.Exit(1)
}

type command struct {
	args int
	do   func(ctx context.Context, c *client.Client, args []string) (any, error)
}

var commands = map[string]command{
	"register": {args: 1, do: func(ctx context.Context, c *client.Client, args []string) (any, error) {
		return c.Register(ctx, args[0])
	}},
	"whoami": {args: 0, do: func(ctx context.Context, c *client.Client, _ []string) (any, error) {
		return c.Me(ctx)
	}},
	"exists": {args: 1, do: func(ctx context.Context, c *client.Client, args []string) (any, error) {
		return c.UserExists(ctx, args[0])
	}},
	"list": {args: 1, do: func(ctx context.Context, c *client.Client, args []string) (any, error) {
		return c.ListComments(ctx, args[0])
	}},
	"post": {args: 2, do: func(ctx context.Context, c *client.Client, args []string) (any, error) {
		return c.PostComment(ctx, args[0], args[1])
	}},
	"delete": {args: 2, do: func(ctx context.Context, c *client.Client, args []string) (any, error) {
		deleted, err := c.DeleteComment(ctx, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": deleted}, nil
	}},
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("commentctl", flag.ContinueOnError)
	server := flags.String("server", envOr("COMMENTS_SERVER", defaultServer), "base URL of the comments API")
	token := flags.String("token", os.Getenv("COMMENTS_TOKEN"), "bearer token")
	if err := flags.Parse(args); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
	}
	cmdArgs := rest[1:]
	if cmd.args == 2 && len(cmdArgs) > 2 && rest[0] == "post" {
		cmdArgs = []string{cmdArgs[0], strings.Join(cmdArgs[1:], " ")}
	}
	if len(cmdArgs) != cmd.args {
		return fmt.Errorf("%s expects %d argument(s): %w", rest[0], cmd.args, errUsage)
	}

	c := client.New(strings.TrimRight(*server, "/"), client.WithToken(*token))
	result, err := cmd.do(ctx, c, cmdArgs)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
