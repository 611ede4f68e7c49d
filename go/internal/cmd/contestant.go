package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/room"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
)

type contestantAction func(ctx context.Context, c *cli.Context, ct *room.Contestant, client *roomsync.Client) error

func withContestant(fn contestantAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		services := setupServices(ctx, configFrom(c))
		defer services.Close()

		code, err := resolveRoom(c, services.Device)
		if err != nil {
			return err
		}
		client, err := services.openRoom(ctx, code)
		if err != nil {
			return err
		}
		defer client.Close()

		ct := room.NewContestant(client, services.Device, services.Device, services.Clock)
		defer ct.Close()

		if err := fn(ctx, c, ct, client); err != nil {
			return err
		}
		return client.Flush(context.WithoutCancel(ctx))
	}
}

func contestantCommand() *cli.Command {
	return &cli.Command{
		Name:  "contestant",
		Usage: "follow a room as a contestant",
		Subcommands: []*cli.Command{
			{
				Name:  "join",
				Usage: "join an existing room",
				Flags: []cli.Flag{roomFlag()},
				Action: func(c *cli.Context) error {
					services := setupServices(c.Context, configFrom(c))
					defer services.Close()

					code, err := services.lobby().JoinContestant(c.Context, c.String("room"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Joined room %s\n", code)
					return nil
				},
			},
			{
				Name:      "select",
				Usage:     "claim a player as yourself",
				ArgsUsage: "PLAYER",
				Flags:     []cli.Flag{roomFlag()},
				Action: withContestant(func(_ context.Context, c *cli.Context, ct *room.Contestant, _ *roomsync.Client) error {
					p, err := resolvePlayer(ct.Standings(), c.Args().First())
					if err != nil {
						return err
					}
					if err := ct.SelectPlayer(p.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "You are %s\n", p.Name)
					return nil
				}),
			},
			{
				Name:  "release",
				Usage: "give up your player",
				Flags: []cli.Flag{roomFlag()},
				Action: withContestant(func(_ context.Context, _ *cli.Context, ct *room.Contestant, _ *roomsync.Client) error {
					return ct.ReleasePlayer()
				}),
			},
			{
				Name:   "watch",
				Usage:  "follow standings, timer and messages until interrupted",
				Flags:  []cli.Flag{roomFlag()},
				Action: withContestant(watchRoom),
			},
		},
	}
}

func watchRoom(ctx context.Context, c *cli.Context, ct *room.Contestant, client *roomsync.Client) error {
	out := c.App.Writer

	ct.OnMessage(func(m *models.BroadcastMessage) {
		if m != nil {
			printMessage(out, *m)
		}
	})
	ct.OnSelectionLost(func(string) {
		fmt.Fprintln(out, "Your player was removed or taken by another device; select again.")
	})
	remove := client.OnChange(func(ch roomsync.Change) {
		switch ch.Slice {
		case models.SlicePlayers, models.SliceMatches:
			printStandings(out, ct.Standings())
		case models.SliceTimer:
			printTimer(out, client.Timer(), ct.TimerRemaining())
		}
	})
	defer remove()

	if me, ok := ct.CurrentPlayer(); ok {
		fmt.Fprintf(out, "You are %s\n", me.Name)
	}
	printStandings(out, ct.Standings())
	printTimer(out, client.Timer(), ct.TimerRemaining())
	if m, ok := ct.VisibleMessage(); ok {
		printMessage(out, m)
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if client.Timer().IsRunning {
				printTimer(out, client.Timer(), ct.TimerRemaining())
			}
		}
	}
}
