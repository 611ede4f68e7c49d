package main

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/room"
	"github.com/mcdev12/scoreboard/go/internal/schedule"
)

const defaultTimerMinutes = 10

type scorerAction func(c *cli.Context, s *room.Scorer) error

// withScorer unlocks the room with the device's cached pin, waits for the
// room to sync, runs fn and waits for its writes to land.
func withScorer(fn scorerAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := c.Context
		services := setupServices(ctx, configFrom(c))
		defer services.Close()

		code, err := resolveRoom(c, services.Device)
		if err != nil {
			return err
		}
		pin, err := services.Device.ScorerPin(code)
		if err != nil {
			return err
		}
		if pin == "" {
			return fmt.Errorf("room %s is locked on this device; run `scoreboard scorer enter --room %s` first", code, code)
		}
		if _, err := services.lobby().EnterScorer(ctx, code, pin); err != nil {
			return err
		}

		client, err := services.openRoom(ctx, code)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := fn(c, room.NewScorer(client, services.Clock, nil)); err != nil {
			return err
		}
		return client.Flush(ctx)
	}
}

func scorerCommand() *cli.Command {
	return &cli.Command{
		Name:  "scorer",
		Usage: "edit a room as its scorer",
		Subcommands: []*cli.Command{
			{
				Name:  "enter",
				Usage: "create a room or unlock an existing one on this device",
				Flags: []cli.Flag{
					roomFlag(),
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "scorer password", Required: true},
				},
				Action: func(c *cli.Context) error {
					services := setupServices(c.Context, configFrom(c))
					defer services.Close()

					code, err := services.lobby().EnterScorer(c.Context, c.String("room"), c.String("password"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Scoring room %s\n", code)
					return nil
				},
			},
			{
				Name:      "add-player",
				Usage:     "add a player to the roster",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{roomFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					p, err := s.AddPlayer(c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Added %s (%s)\n", p.Name, p.ID)
					return nil
				}),
			},
			{
				Name:      "rename-player",
				Usage:     "rename a player",
				ArgsUsage: "PLAYER NEW_NAME",
				Flags:     []cli.Flag{roomFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					p, err := resolvePlayer(s.Standings(), c.Args().Get(0))
					if err != nil {
						return err
					}
					return s.RenamePlayer(p.ID, c.Args().Get(1))
				}),
			},
			{
				Name:      "delete-player",
				Usage:     "remove a player and every match they played",
				ArgsUsage: "PLAYER",
				Flags:     []cli.Flag{roomFlag(), yesFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					p, err := resolvePlayer(s.Standings(), c.Args().First())
					if err != nil {
						return err
					}
					return s.DeletePlayer(p.ID, confirmer(c))
				}),
			},
			{
				Name:      "result",
				Usage:     "record a match result",
				ArgsUsage: "MATCH SCORE_P1 SCORE_P2",
				Flags:     []cli.Flag{roomFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					m, err := resolveMatch(s.Matches(), c.Args().Get(0))
					if err != nil {
						return err
					}
					s1, err := strconv.Atoi(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("invalid score %q: %w", c.Args().Get(1), err)
					}
					s2, err := strconv.Atoi(c.Args().Get(2))
					if err != nil {
						return fmt.Errorf("invalid score %q: %w", c.Args().Get(2), err)
					}
					_, err = s.SubmitResult(m.ID, s1, s2)
					return err
				}),
			},
			{
				Name:      "adjust",
				Usage:     "add or remove points for a player",
				ArgsUsage: "PLAYER DELTA",
				Flags:     []cli.Flag{roomFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					p, err := resolvePlayer(s.Standings(), c.Args().Get(0))
					if err != nil {
						return err
					}
					delta, err := strconv.Atoi(c.Args().Get(1))
					if err != nil {
						return fmt.Errorf("invalid delta %q: %w", c.Args().Get(1), err)
					}
					return s.AdjustPoints(p.ID, delta)
				}),
			},
			{
				Name:      "schedule",
				Usage:     "replace the match log with a new schedule (1v1, swiss or group)",
				ArgsUsage: "FORMAT",
				Flags:     []cli.Flag{roomFlag(), yesFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					format, err := schedule.ParseFormat(c.Args().First())
					if err != nil {
						return err
					}
					matches, err := s.GenerateSchedule(format, confirmer(c))
					if err != nil {
						return err
					}
					printMatches(c.App.Writer, matches, s.Standings())
					return nil
				}),
			},
			{
				Name:      "timer",
				Usage:     "control the round timer",
				ArgsUsage: "start|pause|reset [MINUTES]",
				Flags:     []cli.Flag{roomFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					minutes := defaultTimerMinutes
					if arg := c.Args().Get(1); arg != "" {
						var err error
						if minutes, err = strconv.Atoi(arg); err != nil {
							return fmt.Errorf("invalid minutes %q: %w", arg, err)
						}
					}

					switch action := c.Args().First(); action {
					case "start":
						return s.StartTimer(minutes)
					case "pause":
						return s.PauseTimer()
					case "reset":
						return s.ResetTimer(minutes)
					default:
						return fmt.Errorf("unknown timer action %q", action)
					}
				}),
			},
			{
				Name:      "broadcast",
				Usage:     "send a message to every player or to selected players",
				ArgsUsage: "TEXT",
				Flags: []cli.Flag{
					roomFlag(),
					&cli.StringSliceFlag{Name: "to", Usage: "recipient player (repeatable); everyone when omitted"},
				},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					targets := []string{models.TargetAll}
					if names := c.StringSlice("to"); len(names) > 0 {
						targets = targets[:0]
						players := s.Standings()
						for _, n := range names {
							p, err := resolvePlayer(players, n)
							if err != nil {
								return err
							}
							targets = append(targets, p.ID)
						}
					}

					m, err := s.SendBroadcast(c.Args().First(), targets)
					if err != nil {
						return err
					}
					printMessage(c.App.Writer, m)
					return nil
				}),
			},
			{
				Name:  "reset",
				Usage: "clear all players, matches, timer and messages",
				Flags: []cli.Flag{roomFlag(), yesFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					if err := s.ResetRoom(confirmer(c)); err != nil {
						return err
					}
					log.Info().Msg("Room data cleared")
					return nil
				}),
			},
			{
				Name:  "standings",
				Usage: "print the ranked roster and the match log",
				Flags: []cli.Flag{roomFlag()},
				Action: withScorer(func(c *cli.Context, s *room.Scorer) error {
					standings := s.Standings()
					printStandings(c.App.Writer, standings)
					fmt.Fprintln(c.App.Writer)
					printMatches(c.App.Writer, s.Matches(), standings)
					return nil
				}),
			},
		},
	}
}
