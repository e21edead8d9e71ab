// Command cvrp solves capacitated vehicle routing instances and prints the
// route report.
//
//	cvrp [-instance file.yaml] [-strategy name] [-improve] [-json] [file ...]
//
// Without any instance file the built-in sample is solved with path
// cheapest arc.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"

	"cvrp-router/internal/config"
	"cvrp-router/internal/database"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/instance"
	"cvrp-router/internal/models"
	"cvrp-router/internal/report"
	"cvrp-router/internal/routing"
	"cvrp-router/internal/sqlite"
)

type options struct {
	files    []string
	strategy string
	improve  bool
	asJSON   bool
}

func main() {
	log.SetOutput(io.Discard)
	if os.Getenv("CVRP_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cvrp: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("cvrp", flag.ContinueOnError)
	file := fs.String("instance", "", "instance file (.yaml, .yml or .json)")
	strategy := fs.String("strategy", "", "first solution strategy: cheapest_insertion or path_cheapest_arc")
	improve := fs.Bool("improve", false, "run 2-opt on every route after construction")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{strategy: *strategy, improve: *improve, asJSON: *asJSON}
	if *file != "" {
		opts.files = append(opts.files, *file)
	}
	opts.files = append(opts.files, fs.Args()...)
	return opts, nil
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	strategy, err := resolveStrategy(opts)
	if err != nil {
		return err
	}

	instances, err := loadInstances(opts.files)
	if err != nil {
		return err
	}

	osrm, closeStore, err := osrmSource(instances)
	if err != nil {
		return err
	}
	defer closeStore()

	reqs := make([]*routing.SolveRequest, len(instances))
	for i, inst := range instances {
		req, err := routing.NewRequest(ctx, inst, osrm, strategy, opts.improve)
		if err != nil {
			return fmt.Errorf("%s: %w", inst.Name, err)
		}
		reqs[i] = req
	}

	sols, err := routing.SolveBatch(ctx, routing.NewSolver(), reqs, runtime.NumCPU())
	if err != nil {
		return err
	}

	for i, sol := range sols {
		rep, err := report.Build(sol, reqs[i].Oracle, reqs[i].Dimensions[0])
		if err != nil {
			return err
		}
		if len(sols) > 1 {
			fmt.Fprintf(out, "== %s ==\n", instances[i].Name)
		}
		if err := write(out, rep, opts.asJSON); err != nil {
			return err
		}
	}
	return nil
}

func resolveStrategy(opts *options) (routing.Strategy, error) {
	if opts.strategy == "" && len(opts.files) == 0 {
		return routing.StrategyPathCheapestArc, nil
	}
	return routing.ParseStrategy(opts.strategy)
}

func loadInstances(files []string) ([]*models.Instance, error) {
	if len(files) == 0 {
		return []*models.Instance{models.SampleInstance()}, nil
	}
	instances := make([]*models.Instance, 0, len(files))
	for _, f := range files {
		inst, err := instance.Load(f)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// osrmSource opens the distance cache and OSRM client only when some
// instance asks for road distances.
func osrmSource(instances []*models.Instance) (*distance.OSRMSource, func(), error) {
	noop := func() {}

	needed := false
	for _, inst := range instances {
		if m, err := distance.ParseMetric(inst.Metric); err == nil && m == distance.MetricOSRM {
			needed = true
		}
	}
	if !needed {
		return nil, noop, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, noop, err
	}
	path := cfg.DBPath
	if path == "" {
		if path, err = database.GetDefaultDBPath(); err != nil {
			return nil, noop, err
		}
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, noop, err
	}
	return distance.NewOSRMSource(cfg.OSRMBaseURL, store.DistanceCache()), func() { store.Close() }, nil
}

func write(out io.Writer, rep *models.SolutionReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return report.Format(out, rep)
}
