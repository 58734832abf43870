// Package urlfile loads URL batches from JSON or CSV files.
package urlfile

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a batch of URLs from path. A .json file must hold an array of
// strings; a .csv file must carry a header row with a "url" column. Blank
// entries are skipped. Loading an empty batch is not an error.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(f)
	case ".csv":
		return loadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported url file extension %q (want .json or .csv)", filepath.Ext(path))
	}
}

func loadJSON(r io.Reader) ([]string, error) {
	var raw []string
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode url json: %w", err)
	}
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func loadCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "url") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("csv header missing %q column", "url")
	}

	var urls []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if u := strings.TrimSpace(record[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
