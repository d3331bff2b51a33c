package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"roob.re/mirrorrank/client"
	"roob.re/mirrorrank/config"
	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/pool"
	"roob.re/mirrorrank/progress"
	"roob.re/mirrorrank/provider/providers"
	"roob.re/mirrorrank/provider/types"
	"roob.re/mirrorrank/stats"
	"roob.re/mirrorrank/worker"
)

type options struct {
	configPath string
	logLevel   string
	noTest     bool
	maxMirrors int
	progress   bool
	pool       pool.Config
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{
		pool: pool.Config{}.WithDefaults(),
	}

	root := &cobra.Command{
		Use:   "mirrorrank",
		Short: "Fetch, filter and speed test distribution mirrors",
		Long: `mirrorrank fetches the mirror list of a distribution, filters and sorts it, measures the throughput of each
mirror and prints the fastest ones in the format the distribution's package manager expects.

Examples:
  mirrorrank archlinux --completion 0.95 > /etc/pacman.d/mirrorlist
  mirrorrank cachyos --arch x86_64_v3
  cat mirrors.txt | mirrorrank stdin --path-to-test dists/stable/Release`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("could not parse log level %q", opts.logLevel)
			}

			log.SetLevel(level)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a mirrorrank.yaml file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Verbosity level. Accepts levels understood by logrus")
	flags.BoolVar(&opts.noTest, "no-test", false, "Print mirrors in the order the target returns them, without speed testing")
	flags.IntVar(&opts.maxMirrors, "max-mirrors", 0, "Maximum number of mirrors to print. 0 prints all of them")
	flags.BoolVar(&opts.progress, "progress-bar", true, "Show a progress bar on stderr while testing mirrors")
	flags.IntVar(&opts.pool.Workers, "workers", opts.pool.Workers, "Number of mirrors to test concurrently")
	flags.Float64Var(&opts.pool.SampleSizeMiBs, "sample-size-mibs", opts.pool.SampleSizeMiBs, "MiBs to download from each mirror")
	flags.DurationVar(&opts.pool.Timeout, "test-timeout", opts.pool.Timeout, "Time limit for testing each mirror")

	targetNames := make([]string, 0, len(providers.Map))
	for name := range providers.Map {
		targetNames = append(targetNames, name)
	}
	sort.Strings(targetNames)

	for _, name := range targetNames {
		root.AddCommand(targetCommand(opts, name, providers.Map[name]))
	}

	return root
}

func targetCommand(opts *options, name string, builder types.Builder) *cobra.Command {
	conf := builder.DefaultConfig()

	cmd := &cobra.Command{
		Use:   name,
		Short: builder.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, name, builder, conf)
		},
	}

	builder.BindFlags(conf, cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, opts *options, name string, builder types.Builder, conf interface{}) error {
	c, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	// Values from the config file take precedence over defaults, but not over flags set explicitly.
	err = keepChangedFlags(cmd.Flags(), func() error {
		return c.DecodeTarget(name, conf)
	})
	if err != nil {
		return err
	}

	poolConfig := c.Pool
	for flagName, value := range map[string]func(){
		"workers":          func() { poolConfig.Workers = opts.pool.Workers },
		"sample-size-mibs": func() { poolConfig.SampleSizeMiBs = opts.pool.SampleSizeMiBs },
		"test-timeout":     func() { poolConfig.Timeout = opts.pool.Timeout },
	} {
		if cmd.Flags().Changed(flagName) {
			value()
		}
	}

	httpClient := client.New(c.Client)
	target, err := builder.New(conf, types.Env{Client: httpClient, Stdin: cmd.InOrStdin()})
	if err != nil {
		return fmt.Errorf("creating target %q: %w", name, err)
	}

	log.Infof("Using target %q", name)

	return report(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, poolConfig, httpClient, target)
}

// report fetches mirrors from target, optionally ranks them, and prints them to out. Progress messages are printed
// as comments as they arrive.
func report(out, errOut io.Writer, opts *options, poolConfig pool.Config, httpClient *http.Client, target types.Target) error {
	q := progress.New()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for msg := range q.Messages() {
			fmt.Fprintln(out, target.FormatComment(msg))
		}
	}()

	mirrors, err := target.FetchMirrors(q)
	if err != nil {
		q.Done()
		<-printed
		return fmt.Errorf("fetching mirrors: %w", err)
	}

	if opts.noTest {
		q.Done()
		<-printed

		printMirrors(out, target, limit(mirrors, opts.maxMirrors))
		return nil
	}

	p := pool.New(poolConfig, httpClient, stats.New(stats.Config{}))

	var bar *pb.ProgressBar
	if opts.progress {
		bar = pb.New(len(mirrors)).SetWriter(errOut).Start()
		p.OnResult = func(worker.Result) {
			bar.Increment()
		}
	}

	ranked := p.Rank(mirrors, q)
	if bar != nil {
		bar.Finish()
	}

	q.Done()
	<-printed

	fmt.Fprintln(out, target.FormatComment(fmt.Sprintf("RANKED MIRRORS: %d of %d", len(ranked), len(mirrors))))

	ranked = limit(ranked, opts.maxMirrors)
	for _, r := range ranked {
		country := "unknown"
		if r.Mirror.Country != nil {
			country = r.Mirror.Country.Name
		}

		fmt.Fprintln(out, target.FormatComment(fmt.Sprintf("%s %.2f MiB/s", country, r.Throughput()/1024/1024)))
		fmt.Fprintln(out, target.FormatMirror(r.Mirror))
	}

	return nil
}

func printMirrors(out io.Writer, target types.Target, mirrors []mirror.Mirror) {
	for _, m := range mirrors {
		fmt.Fprintln(out, target.FormatMirror(m))
	}
}

func limit[T any](list []T, n int) []T {
	if n > 0 && len(list) > n {
		return list[:n]
	}

	return list
}

// keepChangedFlags runs apply, which may overwrite values bound to flags, and then sets again the flags that were
// explicitly set on the command line.
func keepChangedFlags(flags *pflag.FlagSet, apply func() error) error {
	type changed struct {
		flag  *pflag.Flag
		value string
		slice []string
	}

	var set []changed
	flags.Visit(func(f *pflag.Flag) {
		c := changed{flag: f, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			c.slice = sv.GetSlice()
		}
		set = append(set, c)
	})

	if err := apply(); err != nil {
		return err
	}

	for _, c := range set {
		if sv, ok := c.flag.Value.(pflag.SliceValue); ok {
			if err := sv.Replace(c.slice); err != nil {
				return fmt.Errorf("restoring flag %q: %w", c.flag.Name, err)
			}
			continue
		}

		if err := c.flag.Value.Set(c.value); err != nil {
			return fmt.Errorf("restoring flag %q: %w", c.flag.Name, err)
		}
	}

	return nil
}
