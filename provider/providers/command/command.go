// Package command implements a target that reads mirrors from the output of a shell command, in the same format
// the stdin target accepts.
package command

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/pipeline"
	"roob.re/mirrorrank/progress"
	"roob.re/mirrorrank/provider/types"
)

const (
	defaultShell  = "/bin/sh"
	commentMarker = "#"
)

type Config struct {
	types.Common `yaml:",inline"`

	Command string `yaml:"command"`
	Shell   string `yaml:"shell"`
}

func DefaultConfig() interface{} {
	return &Config{
		Common: types.DefaultCommon(""),
	}
}

func BindFlags(conf interface{}, flags *pflag.FlagSet) {
	c := conf.(*Config)

	c.Common.BindFlags(flags)
	c.Common.BindLineFlags(flags)
	flags.StringVar(&c.Command, "command", c.Command, "Shell command whose output lists mirrors")
	flags.StringVar(&c.Shell, "shell", c.Shell, "Shell used to run the command. Defaults to $SHELL")
}

type Target struct {
	Config
}

func New(conf interface{}, _ types.Env) (types.Target, error) {
	cmdConfig, ok := conf.(*Config)
	if !ok {
		return nil, fmt.Errorf("internal error: supplied config is not of the expected type")
	}

	if cmdConfig.Command == "" {
		return nil, fmt.Errorf("invalid command %q", cmdConfig.Command)
	}

	if cmdConfig.Shell == "" {
		cmdConfig.Shell = os.Getenv("SHELL")
	}

	if cmdConfig.Shell == "" {
		cmdConfig.Shell = defaultShell
		log.Warnf("Could not figure out shell from the environment ($SHELL), using code default")
	}

	log.Infof("Using %q as a shell to run commands", cmdConfig.Shell)

	return &Target{
		Config: *cmdConfig,
	}, nil
}

func (p *Target) FetchMirrors(q *progress.Queue) ([]mirror.Mirror, error) {
	cmd := exec.Command(p.Shell, "-c", p.Command)

	stderr := log.NewEntry(log.StandardLogger()).WithField("command", p.Command).Writer()
	defer stderr.Close()

	cmd.Stderr = stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %q: %w", p.Command, err)
	}

	entries, err := pipeline.ParseSeparated(bytes.NewReader(out), p.Separator, commentMarker)
	if err != nil {
		return nil, fmt.Errorf("parsing output of %q: %w", p.Command, err)
	}

	_ = q.Sendf("READ MIRRORS: %d", len(entries))

	return pipeline.Normalize(entries, p.PathToTest), nil
}

func (p *Target) FormatMirror(m mirror.Mirror) string {
	return p.FormatURL(m)
}
