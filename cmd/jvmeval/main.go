package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/daimatz/jvmeval/pkg/config"
	"github.com/daimatz/jvmeval/pkg/program"
	"github.com/daimatz/jvmeval/pkg/vm"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "YAML configuration file",
		EnvVar: "JVMEVAL_CONFIG",
	}
	resourcesFlag = cli.StringSliceFlag{
		Name:   "resources",
		Usage:  "directory or jar searched by Class.getResourceAsStream (repeatable)",
		EnvVar: "JVMEVAL_RESOURCES",
	}
	maxDepthFlag = cli.IntFlag{
		Name:   "max-depth",
		Usage:  "maximum call depth before StackOverflowError",
		EnvVar: "JVMEVAL_MAX_DEPTH",
	}
	logLevelFlag = cli.StringFlag{
		Name:   "log-level",
		Usage:  "trace, debug, info, warn or error",
		EnvVar: "JVMEVAL_LOG_LEVEL",
	}
	allFlag = cli.BoolFlag{
		Name:  "all",
		Usage: "include runtime library types",
	}

	runFlags = []cli.Flag{configFlag, resourcesFlag, maxDepthFlag, logLevelFlag}
)

func main() {
	app := cli.NewApp()
	app.Name = "jvmeval"
	app.Usage = "evaluate object-oriented Java programs encoded as YAML"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "Execute a program's main method",
			ArgsUsage: "<program.yaml>",
			Flags:     runFlags,
			Action:    run,
		},
		{
			Name:      "check",
			Usage:     "Build the type registry and report resolution errors",
			ArgsUsage: "<program.yaml>",
			Flags:     runFlags,
			Action:    check,
		},
		{
			Name:      "types",
			Usage:     "List resolved types with their supertypes",
			ArgsUsage: "<program.yaml>",
			Flags:     append([]cli.Flag{allFlag}, runFlags...),
			Action:    types,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	c := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if res := ctx.StringSlice(resourcesFlag.Name); len(res) > 0 {
		c.Resources = res
	}
	if ctx.IsSet(maxDepthFlag.Name) {
		c.MaxFrameDepth = ctx.Int(maxDepthFlag.Name)
	}
	if lvl := ctx.String(logLevelFlag.Name); lvl != "" {
		c.LogLevel = lvl
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, _ := c.Level()
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return c, nil
}

// load decodes the program named by the first argument and builds a VM.
func load(ctx *cli.Context, stdout io.Writer) (*vm.VM, error) {
	c, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	path := ctx.Args().First()
	if path == "" {
		return nil, fmt.Errorf("%s: missing program file", ctx.Command.Name)
	}
	p, err := program.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("program", path).Int("types", len(p.Types)).Msg("loaded")

	opts := append(c.Options(log.Logger), vm.WithStdout(stdout))
	v, err := vm.NewVM(p, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func run(ctx *cli.Context) error {
	v, err := load(ctx, os.Stdout)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := v.Execute(); err != nil {
		var te *vm.ThrownException
		if errors.As(err, &te) {
			return cli.NewExitError(fmt.Sprintf("Exception in thread \"main\" %s", te.Error()), 1)
		}
		return cli.NewExitError(fmt.Sprintf("Error executing: %v", err), 1)
	}
	return nil
}

func check(ctx *cli.Context) error {
	v, err := load(ctx, io.Discard)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Printf("%s: ok (%d types)\n", ctx.Args().First(), len(v.Program.Types))
	return nil
}

func types(ctx *cli.Context) error {
	v, err := load(ctx, io.Discard)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	var list []*vm.Type
	if ctx.Bool(allFlag.Name) {
		list = v.Registry.Types()
	} else {
		for _, d := range v.Program.Types {
			t, err := v.Registry.Lookup(d.Name)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			list = append(list, t)
		}
	}

	for _, t := range list {
		var chain []string
		for _, c := range t.Chain() {
			chain = append(chain, c.SourceName())
		}
		line := fmt.Sprintf("%-9s %s", t.Kind, strings.Join(chain, " < "))
		if len(t.Interfaces) > 0 {
			var ifaces []string
			for _, i := range t.Interfaces {
				ifaces = append(ifaces, i.SourceName())
			}
			line += " implements " + strings.Join(ifaces, ", ")
		}
		fmt.Println(line)
	}
	return nil
}
