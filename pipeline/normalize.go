package pipeline

import (
	log "github.com/sirupsen/logrus"

	"roob.re/mirrorrank/countries"
	"roob.re/mirrorrank/mirror"
)

// Normalize turns entries into Mirrors, joining pathToTest to each of them. Entries whose URL cannot be parsed or
// joined are dropped. Order is preserved.
func Normalize(entries []Entry, pathToTest string) []mirror.Mirror {
	mirrors := make([]mirror.Mirror, 0, len(entries))
	for _, entry := range entries {
		m, err := mirror.New(countries.Lookup(entry.CountryCode), entry.URL, pathToTest)
		if err != nil {
			log.Debugf("Dropping mirror %s: %v", entry.URL, err)
			continue
		}

		mirrors = append(mirrors, m)
	}

	return mirrors
}
