package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	player := fs.String("player", "", "player filter (transactions)")
	_ = fs.Parse(args)

	q := "transactions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if q == "balances" {
			path = filepath.Join(*dataDir, "ledger.db")
		} else {
			path = filepath.Join(*dataDir, "index.db")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "transactions":
		query := `SELECT at,kind,player,subject,units,amount FROM transactions ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*player) != "" {
			query = `SELECT at,kind,player,subject,units,amount FROM transactions WHERE player=? ORDER BY id DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*player), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				At      string  `json:"at"`
				Kind    string  `json:"kind"`
				Player  string  `json:"player"`
				Subject string  `json:"subject"`
				Units   int     `json:"units"`
				Amount  float64 `json:"amount"`
			}
			if err := rows.Scan(&r.At, &r.Kind, &r.Player, &r.Subject, &r.Units, &r.Amount); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "regens":
		rows, err := db.Query(`SELECT at,kind,items FROM regens ORDER BY id DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				At    string `json:"at"`
				Kind  string `json:"kind"`
				Items int    `json:"items"`
			}
			if err := rows.Scan(&r.At, &r.Kind, &r.Items); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "balances":
		rows, err := db.Query(`SELECT player,amount FROM balances ORDER BY amount DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Player string  `json:"player"`
				Amount float64 `json:"amount"`
			}
			if err := rows.Scan(&r.Player, &r.Amount); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-db PATH] [-limit N] [-player P] transactions|regens|balances")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
