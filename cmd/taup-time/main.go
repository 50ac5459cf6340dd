package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chrissnell/taup/internal/app"
	"github.com/chrissnell/taup/internal/log"
	"github.com/chrissnell/taup/pkg/config"
	"github.com/chrissnell/taup/pkg/geo"
	"github.com/chrissnell/taup/pkg/taup"
)

func main() {
	cfgFile := flag.String("config", "", "Path to configuration source (YAML or SQLite); defaults are used when empty")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	model := flag.String("model", "", "Velocity model name (overrides the configured model)")
	depth := flag.Float64("h", 0, "Source depth in km")
	phases := flag.String("ph", "", "Comma-separated phase names (configured defaults when empty)")
	deg := flag.Float64("deg", -1, "Epicentral distance in degrees")
	evt := flag.String("evt", "", "Event location as lat,lon")
	sta := flag.String("sta", "", "Station location as lat,lon")
	pierce := flag.Bool("pierce", false, "Print pierce points")
	path := flag.Bool("path", false, "Print raypaths")
	asJSON := flag.Bool("json", false, "Print results as JSON")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init("taup-time", *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*cfgFile, *cfgBackend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	q := taup.Query{Model: cfg.Model, SourceDepth: *depth, Distance: *deg}
	if *model != "" {
		q.Model = *model
	}
	if *phases != "" {
		q.Phases = strings.Split(*phases, ",")
	}
	switch {
	case *pierce:
		q.Mode = taup.ModePierce
	case *path:
		q.Mode = taup.ModePath
	}

	if *evt != "" || *sta != "" {
		event, err := parseCoord(*evt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -evt: %v\n", err)
			os.Exit(1)
		}
		station, err := parseCoord(*sta)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -sta: %v\n", err)
			os.Exit(1)
		}
		q.Event, q.Station = &event, &station
	} else if *deg < 0 {
		fmt.Fprintln(os.Stderr, "Either -deg or both -evt and -sta are required")
		flag.Usage()
		os.Exit(2)
	}

	engine := app.NewEngine(cfg, log.Named("engine"))
	res, err := engine.Arrivals(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding results: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printResult(os.Stdout, res, q.Mode)
}

func parseCoord(v string) (geo.Coord, error) {
	lat, lon, ok := strings.Cut(v, ",")
	if !ok {
		return geo.Coord{}, fmt.Errorf("want lat,lon, got %q", v)
	}
	latDeg, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Coord{}, err
	}
	lonDeg, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return geo.Coord{}, err
	}
	c := geo.NewCoord(latDeg, lonDeg)
	return c, c.Validate()
}

func printResult(out io.Writer, res *taup.Result, mode taup.Mode) {
	fmt.Fprintf(out, "Model: %s\n", res.Model)
	if res.Azimuth != nil {
		fmt.Fprintf(out, "Azimuth: %.2f deg\n", *res.Azimuth)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Distance\tDepth\tPhase\tTravel\tRay Param\tTakeoff\tIncident\tPurist\tPurist\t")
	fmt.Fprintln(w, "(deg)\t(km)\tName\tTime (s)\tp (s/deg)\t(deg)\t(deg)\tDistance\tName\t")
	for _, a := range res.Arrivals {
		fmt.Fprintf(w, "%.2f\t%.1f\t%s\t%.2f\t%.3f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			res.Distance, a.SourceDepth, a.Name, a.Time, a.RayParamDeg(),
			a.TakeoffAngle, a.IncidentAngle, a.Dist, a.PuristName)
	}
	w.Flush()

	if mode == taup.ModeArrivals {
		return
	}
	for _, a := range res.Arrivals {
		pts, geoPts := a.Pierce, a.PierceGeo
		if mode == taup.ModePath {
			pts, geoPts = a.Path, a.PathGeo
		}
		fmt.Fprintf(out, "\n> %s at %.2f seconds at %.2f degrees for a %.1f km deep source\n", a.Name, a.Time, a.Dist, a.SourceDepth)
		for i, pt := range pts {
			if len(geoPts) == len(pts) {
				fmt.Fprintf(out, "%10.2f %10.1f %10.2f %10.4f %10.4f\n", pt.Dist, pt.Depth, pt.Time, geoPts[i].Lat, geoPts[i].Lon)
				continue
			}
			fmt.Fprintf(out, "%10.2f %10.1f %10.2f\n", pt.Dist, pt.Depth, pt.Time)
		}
	}
}
