package types

import (
	"io"
	"net/http"
	"time"

	"github.com/spf13/pflag"

	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/progress"
)

// Target is a source of mirrors for a given distribution, which also knows how to render them for that
// distribution's package manager.
type Target interface {
	// FetchMirrors returns the candidate mirrors, best first according to the target's own criteria.
	// Human-readable progress is reported on the supplied queue, which may be nil. Either the whole list or an error
	// is returned.
	FetchMirrors(progress *progress.Queue) ([]mirror.Mirror, error)

	// FormatComment renders a message as a comment line.
	FormatComment(message string) string

	// FormatMirror renders a mirror as a configuration line.
	FormatMirror(m mirror.Mirror) string
}

// Env holds process-wide dependencies handed to targets when they are built.
type Env struct {
	Client *http.Client
	Stdin  io.Reader
}

// Builder contains the functions needed to expose a target on the command line and build it.
type Builder struct {
	Description string

	// DefaultConfig is expected to return a pointer to a struct holding the target-specific config, populated with
	// defaults. yaml.Node.Decode will be called on the returned value to apply user-defined config over it.
	DefaultConfig func() interface{}

	// BindFlags registers command line flags that write into the value returned by DefaultConfig.
	BindFlags func(conf interface{}, flags *pflag.FlagSet)

	// New builds the target from the value returned by DefaultConfig, once flags and config have been applied to it.
	New func(conf interface{}, env Env) (Target, error)
}

// Common holds the configuration shared by all targets.
type Common struct {
	// PathToTest is joined to each mirror URL to build the URL used for speed testing.
	PathToTest string `yaml:"path_to_test"`
	// PathToReturn is joined to each mirror URL when printing results, for targets that print bare URLs.
	PathToReturn  string        `yaml:"path_to_return"`
	CommentPrefix string        `yaml:"comment_prefix"`
	OutputPrefix  string        `yaml:"output_prefix"`
	Separator     string        `yaml:"separator"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

const (
	DefaultCommentPrefix = "# "
	DefaultSeparator     = "\t"
	DefaultFetchTimeout  = 15 * time.Second
)

func DefaultCommon(pathToTest string) Common {
	return Common{
		PathToTest:    pathToTest,
		CommentPrefix: DefaultCommentPrefix,
		Separator:     DefaultSeparator,
		FetchTimeout:  DefaultFetchTimeout,
	}
}

// BindFlags registers the flags every target understands.
func (c *Common) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.PathToTest, "path-to-test", c.PathToTest, "Path joined to each mirror URL and used for speed testing")
	flags.StringVar(&c.CommentPrefix, "comment-prefix", c.CommentPrefix, "Prefix used when printing comments")
	flags.DurationVar(&c.FetchTimeout, "fetch-mirrors-timeout", c.FetchTimeout, "Timeout for each attempt at fetching the mirror list")
}

// BindLineFlags registers the flags used by targets that read plain mirror lists and print bare URLs.
func (c *Common) BindLineFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.PathToReturn, "path-to-return", c.PathToReturn, "Path joined to each mirror URL before printing results")
	flags.StringVar(&c.OutputPrefix, "output-prefix", c.OutputPrefix, "Prefix used when printing results")
	flags.StringVar(&c.Separator, "separator", c.Separator, "Field separator used when parsing the mirror list")
}

func (c Common) FormatComment(message string) string {
	return c.CommentPrefix + message
}

// FormatURL renders the mirror URL joined with PathToReturn, after OutputPrefix. If the path cannot be joined, the
// bare mirror URL is used.
func (c Common) FormatURL(m mirror.Mirror) string {
	u, err := mirror.Join(&m.URL, c.PathToReturn)
	if err != nil {
		return c.OutputPrefix + m.URL.String()
	}

	return c.OutputPrefix + u.String()
}
