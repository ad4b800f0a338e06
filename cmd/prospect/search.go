package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/octobees/prospector/internal/app"
	"github.com/octobees/prospector/internal/dto"
)

var (
	searchReq      = dto.NewSearchRequest()
	searchLat      float64
	searchLon      float64
	searchRadius   float64
	searchRadiusIn float64
	searchSeed     int64
	searchPretty   bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search prospects around a place or coordinates",
	Example: `  prospect search --where "Lyon, France" --category restaurant --number 10
  prospect search --lat 48.8566 --lon 2.3522 --radius-km 2 --tags "shop=bakery" --has email`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req := searchRequestFromFlags(cmd.Flags())

		pipeline, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		resp, err := pipeline.Prospects.Search(ctx, req)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		enc := json.NewEncoder(os.Stdout)
		if searchPretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(resp)
	},
}

// searchRequestFromFlags copies the bound flags into a request; optional
// coordinates and the seed are only set when their flag was given.
func searchRequestFromFlags(flags *pflag.FlagSet) dto.SearchRequest {
	req := searchReq
	if flags.Changed("lat") {
		lat := searchLat
		req.Lat = &lat
	}
	if flags.Changed("lon") {
		lon := searchLon
		req.Lon = &lon
	}
	if flags.Changed("radius-km") {
		r := searchRadius
		req.RadiusKm = &r
	}
	if flags.Changed("radius-min-km") {
		r := searchRadiusIn
		req.RadiusMinKm = &r
	}
	if flags.Changed("seed") {
		s := searchSeed
		req.Seed = &s
	}
	return req
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchReq.Where, "where", "", "place name to geocode")
	f.StringVar(&searchReq.City, "city", "", "alias for --where")
	f.Float64Var(&searchLat, "lat", 0, "latitude of the search centre")
	f.Float64Var(&searchLon, "lon", 0, "longitude of the search centre")
	f.Float64Var(&searchRadius, "radius-km", 0, "search radius in km")
	f.Float64Var(&searchRadiusIn, "radius-min-km", 0, "inner radius in km for a ring search")
	f.StringVar(&searchReq.Tags, "tags", "", `comma separated tag filters, e.g. "amenity=restaurant,shop=bakery"`)
	f.StringVar(&searchReq.Category, "category", "", "named category, see `prospect categories`")
	f.IntVar(&searchReq.Number, "number", dto.DefaultNumber, "number of prospects to return")
	f.IntVar(&searchReq.EnrichMax, "enrich-max", dto.DefaultEnrichMax, "maximum websites to crawl")
	f.StringVar(&searchReq.EnrichMode, "enrich-mode", dto.DefaultEnrichMode, "missing, always or never")
	f.StringVar(&searchReq.Has, "has", "", "required contacts, e.g. email,phone")
	f.IntVar(&searchReq.MinContacts, "min-contacts", 0, "minimum contact channels")
	f.StringVar(&searchReq.ExcludeNames, "exclude-names", "", "comma separated name fragments to drop")
	f.StringVar(&searchReq.ExcludeBrands, "exclude-brands", "", "comma separated brands to drop")
	f.StringVar(&searchReq.Sort, "sort", searchReq.Sort, "contacts, distance, name or random")
	f.StringVar(&searchReq.Dedupe, "dedupe", searchReq.Dedupe, "none, smart or strict")
	f.StringVar(&searchReq.View, "view", searchReq.View, "full or light")
	f.Int64Var(&searchSeed, "seed", 0, "seed for --sort random")
	f.BoolVar(&searchReq.IncludeCoverage, "coverage", true, "include contact coverage stats")
	f.BoolVar(&searchPretty, "pretty", false, "indent JSON output")

	rootCmd.AddCommand(searchCmd)
}
