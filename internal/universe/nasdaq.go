package universe

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Nasdaq Trader publishes the full symbol directory as a pipe-delimited
// file on its anonymous FTP server, refreshed nightly.
const (
	nasdaqFTPHost    = "ftp.nasdaqtrader.com"
	nasdaqListedPath = "/SymbolDirectory/nasdaqlisted.txt"
)

// NasdaqSymbol is one row of the Nasdaq symbol directory.
type NasdaqSymbol struct {
	Symbol       string
	SecurityName string
	ETF          bool
}

// SyncNasdaqListed downloads the Nasdaq symbol directory and writes it to
// dir as nasdaq_tickers.csv so Discover picks it up. Test issues and ETFs
// are dropped. Returns the number of symbols written.
func SyncNasdaqListed(ctx context.Context, dir string) (int, error) {
	symbols, err := FetchNasdaqListed(ctx)
	if err != nil {
		return 0, err
	}

	path := filepath.Join(dir, "nasdaq_tickers.csv")
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "universe: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Symbol", "Security Name"}); err != nil {
		return 0, eris.Wrap(err, "universe: write header")
	}
	for _, s := range symbols {
		if err := w.Write([]string{s.Symbol, s.SecurityName}); err != nil {
			return 0, eris.Wrap(err, "universe: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, eris.Wrap(err, "universe: flush csv")
	}

	zap.L().Info("universe: nasdaq directory synced",
		zap.String("path", path),
		zap.Int("symbols", len(symbols)),
	)
	return len(symbols), nil
}

// FetchNasdaqListed retrieves the current Nasdaq-listed symbol directory
// over FTP, excluding test issues and ETFs.
func FetchNasdaqListed(ctx context.Context) ([]NasdaqSymbol, error) {
	host := net.JoinHostPort(nasdaqFTPHost, "21")

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "universe: ftp dial")
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return nil, eris.Wrap(err, "universe: ftp login")
	}

	resp, err := conn.Retr(nasdaqListedPath)
	if err != nil {
		return nil, eris.Wrap(err, "universe: ftp retrieve")
	}
	defer resp.Close()

	symbols, err := parseNasdaqListed(resp)
	if err != nil {
		return nil, err
	}
	return symbols, nil
}

// parseNasdaqListed reads the pipe-delimited directory format:
// Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares
// with a "File Creation Time" trailer line.
func parseNasdaqListed(r io.Reader) ([]NasdaqSymbol, error) {
	scanner := bufio.NewScanner(r)

	var symbols []NasdaqSymbol
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue
		}
		if strings.HasPrefix(line, "File Creation Time") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) < 7 {
			continue
		}

		symbol := strings.TrimSpace(fields[0])
		testIssue := strings.TrimSpace(fields[3])
		etf := strings.TrimSpace(fields[6])
		if symbol == "" || testIssue == "Y" || etf == "Y" {
			continue
		}

		symbols = append(symbols, NasdaqSymbol{
			Symbol:       symbol,
			SecurityName: strings.TrimSpace(fields[1]),
			ETF:          false,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "universe: read symbol directory")
	}
	if len(symbols) == 0 {
		return nil, eris.New("universe: empty symbol directory")
	}
	return symbols, nil
}
