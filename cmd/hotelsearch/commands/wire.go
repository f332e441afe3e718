package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/votsa/ssr/internal/app"
	"github.com/votsa/ssr/internal/config"
	"github.com/votsa/ssr/internal/identity"
	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
	"github.com/votsa/ssr/internal/search"
	"github.com/votsa/ssr/internal/validator"
)

// searchFlags are the raw search parameters shared by every command.
type searchFlags struct {
	placeID  string
	hotelID  string
	checkIn  string
	checkOut string
	rooms    string
	stars    []string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.placeID, "place-id", "", "Place to search")
	cmd.Flags().StringVar(&f.hotelID, "hotel-id", "", "Single hotel to search")
	cmd.Flags().StringVar(&f.checkIn, "checkin", "", "Check-in date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.checkOut, "checkout", "", "Check-out date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.rooms, "rooms", "", "Room configuration, e.g. 2 or 2|1:5")
	cmd.Flags().StringSliceVar(&f.stars, "stars", nil, "Star ratings to keep, e.g. 4,5")
}

func (f *searchFlags) context() (models.SearchContext, error) {
	sc := models.Normalize(models.UserParams{
		PlaceID:     f.placeID,
		HotelID:     f.hotelID,
		CheckIn:     f.checkIn,
		CheckOut:    f.checkOut,
		Rooms:       f.rooms,
		StarRatings: f.stars,
	}, identity.UUIDGenerator{}.NewID())
	if err := sc.Validate(validator.New()); err != nil {
		return models.SearchContext{}, err
	}
	return sc, nil
}

// buildService loads config, applies the --mode override and wires the
// search service the server uses. Logs go to stderr so stdout stays JSON.
func buildService(cmd *cobra.Command) (*search.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		cfg.Mode = config.Mode(mode)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := obs.NewLogger(cfg.Env, cmd.ErrOrStderr())
	metrics := obs.NewMetrics(prometheus.NewRegistry())
	gateway := app.NewGateway(cfg, identity.UUIDGenerator{}, metrics, logger)
	logger.Debug("cli service ready", slog.String("mode", string(cfg.Mode)))
	return app.NewSearchService(cfg, gateway, metrics, logger), nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
