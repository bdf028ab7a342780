package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
)

// maxDefinitionsSize bounds how much of a definitions source is read.
const maxDefinitionsSize = 16 << 20

var definitionLine = regexp.MustCompile(`(\d+\.\d+): (.+)`)

// Definitions maps a rule number such as "31.1" to its definition text.
type Definitions map[string]string

// ParseDefinitions indexes lines of the form "<rule>: <definition>". Lines
// that do not match are ignored; a later line for the same rule replaces an
// earlier one.
func ParseDefinitions(text string) Definitions {
	defs := make(Definitions)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		m := definitionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		defs[m[1]] = m[2]
	}
	return defs
}

// Lookup returns the definition of rule, or "" when there is none.
func (d Definitions) Lookup(rule string) string {
	return d[rule]
}

// FetchDefinitions loads and parses a definitions source, which is either an
// http(s) URL or a local file path. An empty source yields an empty table.
func FetchDefinitions(ctx context.Context, client *http.Client, source string) (Definitions, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Definitions{}, nil
	}

	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetchURL(ctx, client, source)
	} else {
		body, err = readFile(source)
	}
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(string(body)), nil
}

func fetchURL(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid definitions url %q: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch definitions from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch definitions from %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDefinitionsSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions from %s: %w", url, err)
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open definitions file: %w", err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxDefinitionsSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file %s: %w", path, err)
	}
	return body, nil
}
