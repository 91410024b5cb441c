package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mchmarny/admitguide/pkg/data"
	"github.com/mchmarny/admitguide/pkg/feedback"
	"github.com/urfave/cli/v3"
)

const feedbackListLimitDefault = 20

var (
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of entries to list",
		Value: feedbackListLimitDefault,
	}

	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "Endpoint the feedback refers to [predict, search, evaluate]",
	}

	messageFlag = &cli.StringFlag{
		Name:     "message",
		Aliases:  []string{"m"},
		Usage:    "Feedback text",
		Required: true,
	}

	yesFlag = &cli.BoolFlag{
		Name:  "yes",
		Usage: "Skip the confirmation prompt",
	}

	feedbackCmd = &cli.Command{
		Name:            "feedback",
		Usage:           "Manage user feedback",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the most recent feedback",
				Action: cmdFeedbackList,
				Flags:  []cli.Flag{limitFlag},
			},
			{
				Name:   "add",
				Usage:  "Record feedback",
				Action: cmdFeedbackAdd,
				Flags:  []cli.Flag{endpointFlag, messageFlag},
			},
			{
				Name:   "reset",
				Usage:  "Delete all stored feedback",
				Action: cmdFeedbackReset,
				Flags:  []cli.Flag{yesFlag},
			},
		},
	}
)

func withFeedback(ctx context.Context, cmd *cli.Command, fn func(*feedback.Logger) error) error {
	db, err := data.Open(ctx, getConfig(cmd).Config.Feedback.DSN)
	if err != nil {
		return fmt.Errorf("opening feedback store: %w", err)
	}
	defer db.Close()

	l, err := feedback.NewLogger(db, nil)
	if err != nil {
		return err
	}
	return fn(l)
}

func cmdFeedbackList(ctx context.Context, cmd *cli.Command) error {
	return withFeedback(ctx, cmd, func(l *feedback.Logger) error {
		list, err := l.List(ctx, cmd.Int(limitFlag.Name))
		if err != nil {
			return err
		}
		return encode(cmd, list)
	})
}

func cmdFeedbackAdd(ctx context.Context, cmd *cli.Command) error {
	return withFeedback(ctx, cmd, func(l *feedback.Logger) error {
		fb, err := l.Log(ctx, feedback.Feedback{
			Endpoint: cmd.String(endpointFlag.Name),
			Message:  cmd.String(messageFlag.Name),
		})
		if err != nil {
			return err
		}
		return encode(cmd, fb)
	})
}

func cmdFeedbackReset(ctx context.Context, cmd *cli.Command) error {
	dsn := getConfig(cmd).Config.Feedback.DSN
	out := writer(cmd)

	if !cmd.Bool(yesFlag.Name) {
		fmt.Fprintf(out, "This will permanently delete all feedback in %s\n", dsn)
		fmt.Fprint(out, "Are you sure? [y/N]: ")

		var in io.Reader = os.Stdin
		if r := cmd.Root().Reader; r != nil {
			in = r
		}
		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	return withFeedback(ctx, cmd, func(l *feedback.Logger) error {
		n, err := l.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d feedback entries.\n", n)
		return nil
	})
}
