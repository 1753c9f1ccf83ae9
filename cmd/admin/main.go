package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tradepost.gg/internal/persistence/statefile"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "status":
			statusCmd(os.Args[2:])
			return
		case "offers":
			offersCmd(os.Args[2:])
			return
		case "regen":
			regenCmd(os.Args[2:])
			return
		case "reload":
			reloadCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		}
	}
	usage()
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin status|offers|regen|reload|state|db [flags]")
	os.Exit(2)
}

// stateCmd decodes the persisted state file offline and prints a summary,
// useful when the server is down.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	path := fs.String("path", "./data/state.zst", "state file path")
	_ = fs.Parse(args)

	st, err := statefile.Read(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read state:", err)
		os.Exit(1)
	}

	fmt.Printf("version=%d saved_at=%s\n", st.Header.Version, time.Unix(st.Header.SavedAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("buyback: offers=%d last_generated_at=%s\n",
		len(st.Buyback.Offers), time.Unix(st.Buyback.LastGeneratedAt, 0).UTC().Format(time.RFC3339))
	for _, o := range st.Buyback.Offers {
		state := "active"
		if o.Disabled {
			state = "exhausted"
		}
		fmt.Printf("  %-32s initial=%.2f current=%.2f step=%.2f group=%d %s\n",
			o.ID, o.InitialPrice, o.CurrentPrice, o.Step, o.GroupSize, state)
	}
	fmt.Printf("demand: tracked_items=%d\n", len(st.Demand.BuyMult))
	fmt.Printf("quests: date=%s ids=%v players=%d\n", st.Quests.Date, st.Quests.IDs, len(st.Quests.Players))
}
