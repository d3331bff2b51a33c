// Package mirror holds the normalized representation of a candidate mirror.
package mirror

import (
	"errors"
	"fmt"
	"net/url"

	"roob.re/mirrorrank/countries"
)

var (
	ErrNotAbsolute = errors.New("url is not absolute")
	ErrJoin        = errors.New("joining path")
)

// Mirror is a candidate mirror with a validated base URL and the URL used to measure its speed.
// URLs are stored by value, copies of a Mirror never share state.
type Mirror struct {
	// Country is nil when the source did not report a country, or reported an unknown one.
	Country   *countries.Country
	URL       url.URL
	URLToTest url.URL
}

// New builds a Mirror from a raw base URL, resolving pathToTest against it.
func New(country *countries.Country, rawURL, pathToTest string) (Mirror, error) {
	base, err := ParseBase(rawURL)
	if err != nil {
		return Mirror{}, err
	}

	return FromURL(country, base, pathToTest)
}

// FromURL is like New, for a base URL that has already been parsed.
func FromURL(country *countries.Country, base *url.URL, pathToTest string) (Mirror, error) {
	toTest, err := Join(base, pathToTest)
	if err != nil {
		return Mirror{}, err
	}

	return Mirror{
		Country:   country,
		URL:       *base,
		URLToTest: *toTest,
	}, nil
}

// ParseBase parses a mirror base URL, which must carry both a scheme and a host.
func ParseBase(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", rawURL, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotAbsolute, rawURL)
	}

	return u, nil
}

// Join resolves path as a reference relative to base. An empty path returns a copy of base.
func Join(base *url.URL, path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q to %s: %v", ErrJoin, path, base, err)
	}

	return base.ResolveReference(ref), nil
}

func (m Mirror) String() string {
	country := "unknown"
	if m.Country != nil {
		country = m.Country.Code
	}

	return fmt.Sprintf("country=%s url=%s", country, m.URL.String())
}
