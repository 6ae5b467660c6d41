// Command pixeldqn trains and evaluates DeepQ agents on pixel
// environments.
//
// Usage:
//
//	pixeldqn train  [-config file] [-seed n] [-episodes n] [-resume id|latest]
//	pixeldqn play   [-config file] [-run id] [-episode n] [-episodes n]
//	pixeldqn report -records file [-out file] [-title title]
//	pixeldqn config [-out file]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aunum/log"
	"github.com/pixelrl/pixeldqn/agent/deepq"
	"github.com/pixelrl/pixeldqn/checkpoint"
	"github.com/pixelrl/pixeldqn/config"
	"github.com/pixelrl/pixeldqn/environment/wrappers"
	"github.com/pixelrl/pixeldqn/experiment"
	"github.com/pixelrl/pixeldqn/experiment/checkpointer"
	"github.com/pixelrl/pixeldqn/experiment/tracker"
)

const (
	recordsFile = "records.gob"
	reportFile  = "report.html"
	configFile  = "config.json"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "play":
		return runPlay(ctx, args[1:])
	case "report":
		return runReport(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: pixeldqn <train|play|report|config> "+
		"[flags]", msg)
}

// overrides holds the flags shared by commands that override values of
// the configuration file
type overrides struct {
	configPath *string
	seed       *uint64
	episodes   *int
	store      *string
	path       *string
	outDir     *string
}

func addOverrides(fs *flag.FlagSet) overrides {
	return overrides{
		configPath: fs.String("config", "", "JSON configuration file, "+
			"defaults are used if empty"),
		seed:     fs.Uint64("seed", 0, "random seed"),
		episodes: fs.Int("episodes", 0, "number of episodes"),
		store:    fs.String("store", "", "checkpoint store: memory|file|sqlite"),
		path: fs.String("checkpoint", "", "checkpoint directory or "+
			"database file"),
		outDir: fs.String("out", "", "directory for records and reports"),
	}
}

// load loads the configuration and applies the flags that were set
func (o overrides) load(fs *flag.FlagSet) (config.Config, error) {
	c := config.Default()
	if *o.configPath != "" {
		var err error
		if c, err = config.Load(*o.configPath); err != nil {
			return config.Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			c.Seed = *o.seed
		case "episodes":
			c.Experiment.Episodes = *o.episodes
		case "store":
			c.Checkpoint.Store = checkpoint.Kind(*o.store)
		case "checkpoint":
			c.Checkpoint.Path = *o.path
		case "out":
			c.OutputDir = *o.outDir
		}
	})

	return c, c.Validate()
}

// setup creates the environment, the agent, and the checkpoint store
// described by a configuration
func setup(ctx context.Context, c config.Config) (*wrappers.Pixel,
	*deepq.DeepQ, checkpoint.Store, error) {
	e, err := c.Env.Create(c.Seed)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := deepq.New(e.ObservationShape(), e.NumActions(), c.Agent,
		c.Seed)
	if err != nil {
		e.Close()
		return nil, nil, nil, err
	}

	store, err := checkpoint.NewStore(c.Checkpoint.Store, c.Checkpoint.Path)
	if err == nil {
		err = store.Init(ctx)
	}
	if err != nil {
		a.Close()
		e.Close()
		return nil, nil, nil, err
	}

	return e, a, store, nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	o := addOverrides(fs)
	resume := fs.String("resume", "", "run id to resume, or latest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := o.load(fs)
	if err != nil {
		return err
	}

	e, a, store, err := setup(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()
	defer a.Close()
	defer store.Close()

	runID := checkpoint.NewRunID()
	startEpisode, trainCalls := 0, 0
	if *resume != "" {
		id := *resume
		if id == "latest" {
			id = ""
		}
		r, ok, err := store.Latest(ctx, id)
		if err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("train: no checkpoint to resume from")
		}
		if err := a.Restore(r.Agent); err != nil {
			return err
		}
		runID, startEpisode = r.RunID, r.Episode
		trainCalls = r.Agent.TrainCalls
		log.Infof("resuming run %v from episode %v", runID, startEpisode)
	}

	runDir := filepath.Join(c.OutputDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	if err := c.Save(filepath.Join(runDir, configFile)); err != nil {
		return err
	}

	interval := c.Experiment.SaveInterval
	if interval == 0 {
		interval = c.Experiment.Episodes
	}
	check, err := checkpointer.NewNStep(interval, a, store, runID)
	if err != nil {
		return err
	}

	recordsPath := filepath.Join(runDir, recordsFile)
	logger := tracker.NewLogger(os.Stdout, c.Experiment.LogInterval,
		recordsPath, true)
	if startEpisode > 0 {
		if prev, err := tracker.LoadRecords(recordsPath); err == nil {
			logger.Load(prev)
		}
	}

	trackers := []tracker.Tracker{logger}
	if c.Experiment.LogInterval == 0 {
		trackers = append(trackers, tracker.NewProgress(os.Stdout,
			c.Experiment.Episodes, startEpisode))
	}

	exp, err := experiment.NewOnline(e, a, c.Experiment, trackers,
		[]checkpointer.Checkpointer{check})
	if err != nil {
		return err
	}
	exp.SetEpisode(startEpisode)
	exp.SetTrainCalls(trainCalls)

	log.Infof("run %v: training on %v with %v actions and observations %v",
		runID, c.Env.Environment, e.NumActions(), e.ObservationShape())
	runErr := exp.Run(ctx)

	if errors.Is(runErr, context.Canceled) {
		log.Infof("interrupted after episode %v, saving checkpoint",
			exp.Episode())
		if err := check.Save(context.Background(), exp.Episode(), 0); err != nil {
			return err
		}
		runErr = nil
	}

	if err := exp.Save(); err != nil {
		return err
	}
	if records := logger.Records(); len(records) > 0 {
		log.Infof("last 100 episodes: %v", tracker.Summarize(records, 100))
		if err := writeReport(filepath.Join(runDir, reportFile),
			string(c.Env.Environment), records); err != nil {
			return err
		}
	}

	log.Infof("run %v: records and report saved to %v", runID, runDir)
	return runErr
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	o := addOverrides(fs)
	runID := fs.String("run", "", "run id to evaluate, the most recent "+
		"run if empty")
	episode := fs.Int("episode", 0, "checkpoint episode, the latest if 0")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := o.load(fs)
	if err != nil {
		return err
	}
	if *episode > 0 && *runID == "" {
		return fmt.Errorf("play: -episode requires -run")
	}

	e, a, store, err := setup(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()
	defer a.Close()
	defer store.Close()

	var r checkpoint.Record
	var ok bool
	if *episode > 0 {
		r, ok, err = store.Load(ctx, *runID, *episode)
	} else {
		r, ok, err = store.Latest(ctx, *runID)
	}
	if err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("play: no checkpoint found")
	}
	if err := a.Restore(r.Agent); err != nil {
		return err
	}
	log.Infof("evaluating %v", r)

	exp, err := experiment.NewOnline(e, a, c.Experiment, nil, nil)
	if err != nil {
		return err
	}

	episodes := 5
	if *o.episodes > 0 {
		episodes = *o.episodes
	}
	returns, err := exp.Evaluate(ctx, episodes)
	if err != nil {
		return err
	}

	records := make([]tracker.Record, len(returns))
	for i, ret := range returns {
		records[i] = tracker.Record{Episode: i + 1, TotalReward: ret}
		log.Infof("episode %v: return %.2f", i+1, ret)
	}
	log.Infof("%v", tracker.Summarize(records, 0))
	return nil
}

func runReport(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	recordsPath := fs.String("records", "", "records file written by train")
	out := fs.String("out", "", "HTML file to write, next to the "+
		"records if empty")
	title := fs.String("title", "pixeldqn", "report title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *recordsPath == "" {
		return usageError("report: -records is required")
	}

	records, err := tracker.LoadRecords(*recordsPath)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Join(filepath.Dir(*recordsPath), reportFile)
	}
	if err := writeReport(path, *title, records); err != nil {
		return err
	}

	fmt.Println(tracker.Summarize(records, 0))
	fmt.Printf("report written to %s\n", path)
	return nil
}

func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	out := fs.String("out", configFile, "file to write the default "+
		"configuration to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.Default().Save(*out); err != nil {
		return err
	}
	fmt.Printf("default configuration written to %s\n", *out)
	return nil
}

func writeReport(path, title string, records []tracker.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tracker.Report(f, title, records)
}
