package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sxgeo",
		Short:        "Sypex Geo database tool",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("mode", "memory", "how the file is held open: memory, mmap or file")
	root.AddCommand(newLookupCmd(), newInfoCmd())
	return root
}

func openDB(cmd *cobra.Command, path string) (*sxgeo.DB, error) {
	flag, _ := cmd.Flags().GetString("mode")
	mode, err := sxgeo.ParseMode(flag)
	if err != nil {
		return nil, err
	}
	return sxgeo.Open(path, sxgeo.WithMode(mode))
}

func newLookupCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "lookup <db> <ip>...",
		Short: "Resolve IPv4 addresses",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ip := range args[1:] {
				res, err := lookup(db, ip, full)
				if err != nil {
					return fmt.Errorf("%s: %w", ip, err)
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include region and full country records")
	return cmd
}

type lookupResult struct {
	IP       string `json:"ip"`
	Country  string `json:"country"`
	Location any    `json:"location,omitempty"`
}

func lookup(db *sxgeo.DB, ip string, full bool) (lookupResult, error) {
	res := lookupResult{IP: ip}
	var err error
	if res.Country, err = db.CountryCode(ip); err != nil {
		return res, err
	}
	if !db.HasCities() {
		return res, nil
	}

	if full {
		loc, err := db.CityFull(ip)
		if loc != nil {
			res.Location = loc
		}
		return res, err
	}
	loc, err := db.City(ip)
	if loc != nil {
		res.Location = loc
	}
	return res, err
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <db>",
		Short: "Print database metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd, args[0])
			if err != nil {
				return err
			}
			defer db.Close()
			return writeJSON(cmd.OutOrStdout(), db.About())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
