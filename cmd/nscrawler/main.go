// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// nscrawler crawls the features of the local host, a mounted disk image, or
// the containers of the container engines found on the host, writing one
// JSON frame per line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/siemens/nscrawler"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/config"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/engine/containerd"
	"github.com/siemens/nscrawler/engine/moby"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/guests"
	"github.com/siemens/nscrawler/nsexec"
	"github.com/siemens/nscrawler/sandbox"
	"github.com/thediveo/lxkns/log"

	_ "github.com/siemens/nscrawler/collector/all"
	_ "github.com/thediveo/lxkns/log/logrus"
)

func main() {
	// Re-executed children must never get past this point.
	nsexec.CheckAction()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "nscrawler: %s\n", err.Error())
		os.Exit(1)
	}
}

// crawlFunc crawls a single round of frames.
type crawlFunc func(ctx context.Context) ([]*nscrawler.Frame, error)

func run(args []string, stdout io.Writer) error {
	var (
		configPath string
		features   []string
		workers    int
		frequency  time.Duration
		timeout    time.Duration
		mode       string
		mountpoint string
		logLevel   string
		strict     bool
		sandboxed  bool
		output     string
	)
	flags := pflag.NewFlagSet("nscrawler", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", config.DefaultPath, "configuration file")
	flags.StringSliceVarP(&features, "features", "f", nil, "feature types to crawl, such as os,cpu,package")
	flags.IntVar(&workers, "workers", 0, "maximum number of containers crawled in parallel")
	flags.DurationVar(&frequency, "frequency", 0, "time between crawls; crawls only once if zero")
	flags.DurationVar(&timeout, "collector-timeout", 0, "maximum time per collector and target")
	flags.StringVarP(&mode, "mode", "m", controller.Local.String(),
		"crawl mode: local, offline-image, or out-of-container")
	flags.StringVar(&mountpoint, "mountpoint", "", "mount point of the disk image to crawl in offline-image mode")
	flags.StringVar(&logLevel, "log-level", "", "log level, such as debug, info, or warning")
	flags.BoolVar(&strict, "strict-plugins", false, "fail a frame when any of its collectors fail")
	flags.BoolVar(&sandboxed, "sandbox", false, "run untrusted plugins in companion containers")
	flags.StringVarP(&output, "output", "o", "", "write frames to this file instead of stdout")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flags.Changed("features") {
		cfg.Features = features
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("frequency") {
		cfg.Frequency = frequency
	}
	if flags.Changed("collector-timeout") {
		cfg.CollectorTimeout = timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("strict-plugins") {
		cfg.StrictPlugins = strict
	}
	if flags.Changed("sandbox") {
		cfg.Sandbox.Enabled = sandboxed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, _ := cfg.Level()
	logrus.SetLevel(lvl)
	epoch, _ := cfg.Epoch()

	crawlMode, err := controller.ParseMode(mode)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

	opts := []nscrawler.NewOption{
		nscrawler.WithFeatures(cfg.Features...),
		nscrawler.WithWorkers(cfg.Workers),
		nscrawler.WithFeatureEpoch(epoch),
		nscrawler.WithCollectorOptions(cfg.CollectorOptions()),
		nscrawler.WithCollectorTimeout(cfg.CollectorTimeout),
		nscrawler.WithStrictPlugins(cfg.StrictPlugins),
	}
	var crawler *nscrawler.Crawler
	var crawl crawlFunc
	switch crawlMode {
	case controller.Local:
		if slices.Contains(cfg.Features, feature.TypeDockerPS) {
			rt, err := newRuntime(ctx, cfg)
			if err != nil {
				log.Warnf("cannot list containers, reason: %s", err.Error())
			} else {
				defer rt.Close()
				opts = append(opts, nscrawler.WithRuntime(rt))
			}
		}
		crawl = func(ctx context.Context) ([]*nscrawler.Frame, error) {
			frame, err := crawler.CrawlHost(ctx)
			if err != nil {
				return nil, err
			}
			return []*nscrawler.Frame{frame}, nil
		}
	case controller.OfflineImage:
		if mountpoint == "" {
			return errors.New("offline-image mode needs a --mountpoint")
		}
		crawl = func(ctx context.Context) ([]*nscrawler.Frame, error) {
			frame, err := crawler.CrawlImage(ctx, mountpoint)
			if err != nil {
				return nil, err
			}
			return []*nscrawler.Frame{frame}, nil
		}
	case controller.OutOfContainer:
		source, err := guests.New(ctx, guestOptions(cfg)...)
		if err != nil {
			return err
		}
		defer source.Close()
		rt, err := newRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()
		opts = append(opts, nscrawler.WithRuntime(rt))
		if cfg.Sandbox.Enabled {
			sbopts, err := cfg.SandboxOptions()
			if err != nil {
				return err
			}
			mgr, err := sandbox.NewManager(rt, sbopts...)
			if err != nil {
				return err
			}
			defer func() {
				// The crawl context might be gone already.
				if err := mgr.Close(context.Background()); err != nil {
					log.Errorf("cannot tear down all companions, reason: %s", err.Error())
				}
			}()
			opts = append(opts, nscrawler.WithSandbox(mgr))
		}
		crawl = func(ctx context.Context) ([]*nscrawler.Frame, error) {
			return crawler.CrawlContainers(ctx, source.Guests()), nil
		}
	default:
		return fmt.Errorf("crawl mode %s is not supported from the command line", crawlMode)
	}

	crawler, err = nscrawler.New(opts...)
	if err != nil {
		return err
	}

	w := stdout
	if output != "" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open output, reason: %w", err)
		}
		defer f.Close()
		w = f
	}
	return crawlLoop(ctx, crawl, cfg.Frequency, json.NewEncoder(w))
}

// crawlLoop crawls and emits frames until the context is done, or only once
// if frequency is zero.
func crawlLoop(ctx context.Context, crawl crawlFunc, frequency time.Duration, enc *json.Encoder) error {
	for {
		frames, err := crawl(ctx)
		if err != nil {
			log.Errorf("crawl failed, reason: %s", err.Error())
		}
		for _, frame := range frames {
			if err := enc.Encode(frame); err != nil {
				return fmt.Errorf("cannot emit frame, reason: %w", err)
			}
		}
		if frequency == 0 {
			return nil
		}
		if collector.Sleep(ctx, frequency) != nil {
			log.Infof("stopped crawling")
			return nil
		}
	}
}

func guestOptions(cfg *config.Config) []guests.Option {
	opts := []guests.Option{guests.WithProcfs(cfg.Engines.Procfs)}
	if cfg.Engines.Docker != "" {
		opts = append(opts, guests.WithDockerAPI(cfg.Engines.Docker))
	}
	if cfg.Engines.Containerd != "" {
		opts = append(opts, guests.WithContainerdAPI(cfg.Engines.Containerd))
	}
	if cfg.Engines.CRI != "" {
		opts = append(opts, guests.WithCRIAPI(cfg.Engines.CRI))
	}
	return opts
}

// newRuntime returns the engine for resolving container root file systems
// and running companions. Docker takes precedence; when only containerd has
// been configured, containerd is used instead.
func newRuntime(ctx context.Context, cfg *config.Config) (engine.Runtime, error) {
	if cfg.Engines.Docker == "" && cfg.Engines.Containerd != "" {
		rt, err := containerd.New(ctx, cfg.Engines.Containerd, cfg.Engines.ContainerdNamespace)
		if err != nil {
			return nil, err
		}
		return rt, nil
	}
	endpoint := cfg.Engines.Docker
	if endpoint == "" {
		if endpoints := moby.DiscoverEndpoints(cfg.Engines.Procfs); len(endpoints) > 0 {
			endpoint = endpoints[0]
		}
	}
	rt, err := moby.New(endpoint)
	if err != nil {
		return nil, err
	}
	return rt, nil
}
