// Package universe discovers and loads ticker universes from local CSV and
// XLSX files and can refresh the Nasdaq symbol directory over FTP.
package universe

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Universe is one discovered ticker list.
type Universe struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// prettyNames maps well-known universe keys to display names. Unknown keys
// fall back to the key itself.
var prettyNames = map[string]string{
	"sp500":     "S&P 500",
	"dow30":     "Dow Jones 30",
	"nasdaq100": "Nasdaq 100",
	"nasdaq":    "Nasdaq Listed",
	"russell":   "Russell 2000",
}

// tickerSuffixes are the file patterns Discover recognizes.
var tickerSuffixes = []string{"_tickers.csv", "_tickers.xlsx"}

// Discover scans dir for *_tickers.csv and *_tickers.xlsx files and returns
// them sorted by key.
func Discover(dir string) ([]Universe, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "universe: read dir %s", dir)
	}

	var universes []Universe
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, suffix := range tickerSuffixes {
			if !strings.HasSuffix(name, suffix) {
				continue
			}
			key := strings.TrimSuffix(name, suffix)
			universes = append(universes, Universe{
				Key:  key,
				Name: displayName(key),
				Path: filepath.Join(dir, name),
			})
			break
		}
	}

	sort.Slice(universes, func(i, j int) bool { return universes[i].Key < universes[j].Key })
	return universes, nil
}

// Find locates one universe by key under dir.
func Find(dir, key string) (*Universe, error) {
	universes, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	for i := range universes {
		if universes[i].Key == key {
			return &universes[i], nil
		}
	}
	return nil, eris.Errorf("universe: %q not found in %s", key, dir)
}

// Load reads the ticker symbols from a universe file. The file must carry a
// Symbol or Ticker column; when neither header is present the first column
// is used. Symbols are upper-cased and de-duplicated preserving order.
func Load(path string) ([]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Errorf("universe: unsupported file type %s", path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("universe: empty file %s", path)
	}

	col := symbolColumn(rows[0])
	start := 1
	if col < 0 {
		// No recognizable header: treat every row as data, first column.
		col = 0
		start = 0
	}

	seen := make(map[string]bool)
	var tickers []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(row[col]))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		tickers = append(tickers, sym)
	}

	if len(tickers) == 0 {
		return nil, eris.Errorf("universe: no tickers in %s", path)
	}
	return tickers, nil
}

func displayName(key string) string {
	if name, ok := prettyNames[key]; ok {
		return name
	}
	return key
}

// symbolColumn returns the index of the Symbol or Ticker header, or -1 when
// the first row does not look like a header.
func symbolColumn(header []string) int {
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "symbol", "ticker":
			return i
		}
	}
	return -1
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "universe: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "universe: parse csv %s", path)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "universe: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("universe: no sheets in %s", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
