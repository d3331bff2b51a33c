// Package cachyos implements a target for the CachyOS repositories, whose mirror list is a plain pacman mirrorlist.
package cachyos

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"roob.re/mirrorrank/client"
	"roob.re/mirrorrank/fetcher"
	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/progress"
	"roob.re/mirrorrank/provider/types"
)

var MirrorlistSource = fetcher.Source{
	Primary:  "https://cachyos.org/archlinuxmirrorlist/api/cachyos-mirrorlist",
	Fallback: "https://raw.githubusercontent.com/CachyOS/CachyOS-PKGBUILDS/master/cachyos-mirrorlist/cachyos-mirrorlist",
}

const (
	commentMarker = "#"
	serverPrefix  = "Server = "
	placeholder   = "$arch/$repo"

	autoArch = "auto"
)

type Config struct {
	types.Common `yaml:",inline"`

	// Arch replaces the $arch placeholder in the output. "auto" leaves the placeholder for pacman to fill.
	Arch string `yaml:"arch"`
}

func DefaultConfig() interface{} {
	return &Config{
		Common: types.DefaultCommon("x86_64/cachyos/cachyos.db"),
		Arch:   autoArch,
	}
}

func BindFlags(conf interface{}, flags *pflag.FlagSet) {
	c := conf.(*Config)

	c.Common.BindFlags(flags)
	flags.StringVar(&c.Arch, "arch", c.Arch, "Architecture to print in mirror lines, or auto to let pacman pick it")
}

type Target struct {
	Config
	Fetcher fetcher.Fetcher
	Source  fetcher.Source
}

func New(conf interface{}, env types.Env) (types.Target, error) {
	cConfig, ok := conf.(*Config)
	if !ok {
		return nil, fmt.Errorf("internal error: supplied config is not of the expected type")
	}

	if cConfig.Arch == "" {
		cConfig.Arch = autoArch
	}

	httpClient := env.Client
	if httpClient == nil {
		httpClient = client.New(client.Config{})
	}

	return &Target{
		Config: *cConfig,
		Fetcher: fetcher.Fetcher{
			Client:  httpClient,
			Timeout: cConfig.FetchTimeout,
		},
		Source: MirrorlistSource,
	}, nil
}

func (c *Target) FetchMirrors(q *progress.Queue) ([]mirror.Mirror, error) {
	var text string
	err := c.Fetcher.Fetch(q, c.Source, fetcher.Text(&text))
	if err != nil {
		return nil, err
	}

	mirrors := Parse(text, c.PathToTest)
	_ = q.Sendf("FETCHED MIRRORS: %d", len(mirrors))

	return mirrors, nil
}

// Parse extracts mirrors from a pacman mirrorlist whose lines look like `Server = https://example.org/$arch/$repo`.
// Lines that do not hold a valid URL once the template is removed are skipped.
func Parse(mirrorlist string, pathToTest string) []mirror.Mirror {
	var mirrors []mirror.Mirror
	for _, line := range strings.Split(mirrorlist, "\n") {
		if strings.HasPrefix(line, commentMarker) {
			continue
		}

		line = strings.ReplaceAll(line, serverPrefix, "")
		line = strings.ReplaceAll(line, placeholder, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m, err := mirror.New(nil, line, pathToTest)
		if err != nil {
			log.Debugf("Skipping mirrorlist line %q: %v", line, err)
			continue
		}

		mirrors = append(mirrors, m)
	}

	return mirrors
}

func (c *Target) FormatMirror(m mirror.Mirror) string {
	arch := c.Arch
	if arch == autoArch {
		arch = "$arch"
	}

	return fmt.Sprintf("Server = %s%s/$repo", m.URL.String(), arch)
}
