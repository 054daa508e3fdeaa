// Command admin is the operator's tool for a running deployment: it
// queries the sqlite match index directly and hits the server's status
// endpoints over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "matches":
			matchesCmd(os.Args[2:])
			return
		case "players":
			playersCmd(os.Args[2:])
			return
		case "standings":
			standingsCmd(os.Args[2:])
			return
		case "status":
			statusCmd(os.Args[2:])
			return
		case "leaderboard":
			leaderboardCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <matches|players|standings|status|leaderboard> [flags]")
	os.Exit(2)
}
