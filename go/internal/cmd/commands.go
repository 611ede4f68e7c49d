package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mcdev12/scoreboard/go/internal/countdown"
	"github.com/mcdev12/scoreboard/go/internal/identity"
	"github.com/mcdev12/scoreboard/go/internal/models"
	"github.com/mcdev12/scoreboard/go/internal/room"
)

var errNoRoom = errors.New("no room given and no last room remembered; pass --room")

func roomFlag() cli.Flag {
	return &cli.StringFlag{Name: "room", Aliases: []string{"r"}, Usage: "4-digit room code (defaults to the last room entered)"}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"}
}

// resolveRoom returns the --room code or the device's last room.
func resolveRoom(c *cli.Context, device *identity.Device) (string, error) {
	if v := c.String("room"); v != "" {
		return room.NormalizeCode(v)
	}
	last, err := device.LastRoom()
	if err != nil {
		return "", err
	}
	if last == "" {
		return "", errNoRoom
	}
	return last, nil
}

// confirmer prompts on the app's reader unless --yes was given.
func confirmer(c *cli.Context) room.Confirmer {
	if c.Bool("yes") {
		return room.AlwaysConfirm
	}
	return func(prompt string) bool {
		fmt.Fprintf(c.App.Writer, "%s [y/N] ", prompt)
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

// resolvePlayer finds a player by id, or by a case-insensitive unique name.
func resolvePlayer(players []models.Player, arg string) (models.Player, error) {
	if idx := models.FindPlayer(players, arg); idx >= 0 {
		return players[idx], nil
	}

	var found []models.Player
	for _, p := range players {
		if strings.EqualFold(p.Name, strings.TrimSpace(arg)) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return models.Player{}, fmt.Errorf("%w: %q", room.ErrUnknownPlayer, arg)
	case 1:
		return found[0], nil
	default:
		return models.Player{}, fmt.Errorf("%d players are named %q; use the player id", len(found), arg)
	}
}

// resolveMatch finds a match by id or unique id prefix.
func resolveMatch(matches []models.Match, arg string) (models.Match, error) {
	var found []models.Match
	for _, m := range matches {
		if m.ID == arg {
			return m, nil
		}
		if strings.HasPrefix(m.ID, arg) {
			found = append(found, m)
		}
	}
	if len(found) != 1 || arg == "" {
		return models.Match{}, fmt.Errorf("%w: %q", room.ErrUnknownMatch, arg)
	}
	return found[0], nil
}

func printStandings(w io.Writer, standings []models.Player) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSCORE\tW\tL\tID")
	for i, p := range standings {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", i+1, p.Name, p.Score, p.Wins, p.Losses, p.ID)
	}
	tw.Flush()
}

func printMatches(w io.Writer, matches []models.Match, players []models.Player) {
	name := func(id string) string {
		if idx := models.FindPlayer(players, id); idx >= 0 {
			return players[idx].Name
		}
		return "?"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tMATCH\tSCORE\tSTATUS\tID")
	for _, m := range matches {
		var pairing, score string
		if m.IsManual() {
			pairing = name(m.P1ID) + " (manual)"
			score = fmt.Sprintf("%+d", m.ScoreP1)
		} else {
			pairing = name(m.P1ID) + " vs " + name(m.Opponent())
			score = fmt.Sprintf("%d-%d", m.ScoreP1, m.ScoreP2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Round, pairing, score, m.Status, shortID(m.ID))
	}
	tw.Flush()
}

func printTimer(w io.Writer, t models.TimerState, remaining int) {
	state := "paused"
	if t.IsRunning {
		state = "running"
	}
	fmt.Fprintf(w, "TIMER %s (%s)\n", countdown.Format(remaining), state)
}

func printMessage(w io.Writer, m models.BroadcastMessage) {
	fmt.Fprintf(w, "MESSAGE to %s: %s\n", strings.Join(m.TargetNames, ", "), m.Text)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
