// Package stdin implements a target reading mirrors from standard input, one per line, optionally preceded by a
// country code and the configured separator.
package stdin

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/pipeline"
	"roob.re/mirrorrank/progress"
	"roob.re/mirrorrank/provider/types"
)

const commentMarker = "#"

type Config struct {
	types.Common `yaml:",inline"`
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
}

type Target struct {
	Config
	Input io.Reader
}

func New(conf interface{}, env types.Env) (types.Target, error) {
	sConfig, ok := conf.(*Config)
	if !ok {
		return nil, fmt.Errorf("internal error: supplied config is not of the expected type")
	}

	input := env.Stdin
	if input == nil {
		input = os.Stdin
	}

	return &Target{
		Config: *sConfig,
		Input:  input,
	}, nil
}

func (s *Target) FetchMirrors(q *progress.Queue) ([]mirror.Mirror, error) {
	entries, err := pipeline.ParseSeparated(s.Input, s.Separator, commentMarker)
	if err != nil {
		return nil, fmt.Errorf("reading mirrors from input: %w", err)
	}

	_ = q.Sendf("READ MIRRORS: %d", len(entries))

	return pipeline.Normalize(entries, s.PathToTest), nil
}

func (s *Target) FormatMirror(m mirror.Mirror) string {
	return s.FormatURL(m)
}
