package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/votsa/ssr/internal/continuation"
)

// searchResult is the compact listing printed by the search command.
type searchResult struct {
	SearchID       string        `json:"searchId"`
	Pages          int           `json:"pages"`
	Status         string        `json:"status"`
	HasMoreResults bool          `json:"hasMoreResults"`
	Hotels         []hotelResult `json:"hotels"`
}

type hotelResult struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Stars        float64 `json:"stars,omitempty"`
	OfferState   string  `json:"offerState"`
	NightlyPrice float64 `json:"nightlyPrice,omitempty"`
	Currency     string  `json:"currency,omitempty"`
}

func SearchCmd() *cobra.Command {
	var (
		flags searchFlags
		pages int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a place and page through available hotels",
		Example: `  hotelsearch search --place-id 47319 --checkin 2026-11-20 --checkout 2026-11-22
  hotelsearch search --place-id 47319 --checkin 2026-11-20 --checkout 2026-11-22 --stars 4,5 --pages 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.placeID == "" || flags.checkIn == "" || flags.checkOut == "" {
				return cmd.Help()
			}
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			sc, err := flags.context()
			if err != nil {
				return err
			}
			svc, err := buildService(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			initial, err := svc.Page(ctx, sc)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			c := continuation.New(sc, initial, svc, svc)
			if err := c.Start(ctx); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "offers refresh failed:", err)
			}
			for i := 1; i < pages; i++ {
				if err := c.LoadMore(ctx); err != nil {
					if errors.Is(err, continuation.ErrExhausted) {
						break
					}
					return fmt.Errorf("load more: %w", err)
				}
				if err := c.RefreshErr(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "offers refresh failed:", err)
				}
			}
			return writeJSON(cmd.OutOrStdout(), compact(c.View()))
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of result pages to load")

	return cmd
}

func compact(v continuation.View) searchResult {
	out := searchResult{
		SearchID:       v.SearchID,
		Pages:          v.Page,
		Status:         string(v.Status),
		HasMoreResults: v.HasMoreResults,
		Hotels:         make([]hotelResult, 0, len(v.Hotels)),
	}
	for _, h := range v.Hotels {
		out.Hotels = append(out.Hotels, hotelResult{
			ID:           h.ID,
			Name:         h.Hotel.HotelName,
			Stars:        h.Hotel.StarRating,
			OfferState:   string(h.OfferState),
			NightlyPrice: h.CheapestNightlyPrice,
			Currency:     h.Currency,
		})
	}
	return out
}
