// Package statefile persists the trading post engine state as a single
// zstd-compressed document: a JSON header line followed by a gob body.
package statefile

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int   `json:"version"`
	SavedAt int64 `json:"saved_at"`
}

type StateV1 struct {
	Header Header `json:"header"`

	Buyback BuybackV1 `json:"buyback"`
	Demand  DemandV1  `json:"demand"`
	Quests  QuestsV1  `json:"quests"`
}

type BuybackV1 struct {
	LastGeneratedAt int64     `json:"last_generated_at"`
	Offers          []OfferV1 `json:"offers"`
}

type OfferV1 struct {
	ID           string  `json:"id"`
	InitialPrice float64 `json:"initial_price"`
	CurrentPrice float64 `json:"current_price"`
	Step         float64 `json:"step"`
	Disabled     bool    `json:"disabled"`
	GroupSize    int     `json:"group_size"`
}

type DemandV1 struct {
	BuysSinceAdjust map[string]int     `json:"buys_since_adjust,omitempty"`
	BuyMult         map[string]float64 `json:"buy_mult,omitempty"`
	SellMult        map[string]float64 `json:"sell_mult,omitempty"`
}

type QuestsV1 struct {
	Date    string                   `json:"date"`
	IDs     []string                 `json:"ids"`
	Rewards map[string]int           `json:"rewards,omitempty"`
	Players map[string]PlayerV1      `json:"players,omitempty"`
}

type PlayerV1 struct {
	Date      string          `json:"date"`
	Progress  map[string]int  `json:"progress,omitempty"`
	Completed map[string]bool `json:"completed,omitempty"`
	Claimed   map[string]bool `json:"claimed,omitempty"`
}

func Write(path string, st StateV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(st.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = f.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&st); err != nil {
		_ = f.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Read(path string) (StateV1, error) {
	var st StateV1
	f, err := os.Open(path)
	if err != nil {
		return st, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return st, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Header line is advisory; the gob body carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&st); err != nil {
		return st, fmt.Errorf("gob decode: %w", err)
	}
	return st, nil
}
