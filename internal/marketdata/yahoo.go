package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eddy-labs/stocks-cli/internal/config"
	"github.com/eddy-labs/stocks-cli/internal/model"
)

// quoteSummaryModules are the provider modules one fundamentals pull needs.
const quoteSummaryModules = "price,financialData,defaultKeyStatistics,balanceSheetHistory,cashflowStatementHistory"

// YahooClient implements Client against the Yahoo Finance REST endpoints.
type YahooClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// NewYahooClient creates a client from provider configuration.
func NewYahooClient(cfg config.ProviderConfig) *YahooClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &YahooClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

// FetchStockData pulls quote fields, statements, and price history for one
// ticker. Statement or history failures degrade to nil sections; only a
// failed quote pull is an error, since nothing downstream works without it.
func (c *YahooClient) FetchStockData(ctx context.Context, ticker string, tf Timeframe) (*StockData, error) {
	summary, err := c.fetchQuoteSummary(ctx, ticker)
	if err != nil {
		return nil, eris.Wrapf(err, "marketdata: quote summary for %s", ticker)
	}

	data := &StockData{
		Info:         summary.info(ticker),
		BalanceSheet: summary.balanceSheet(),
		CashFlow:     summary.cashFlow(),
		FetchedAt:    time.Now().UTC(),
	}

	history, err := c.fetchHistory(ctx, ticker, tf)
	if err != nil {
		zap.L().Warn("marketdata: price history unavailable",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
	} else {
		data.History = history
	}

	return data, nil
}

func (c *YahooClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "marketdata: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "marketdata: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "marketdata: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("marketdata: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "marketdata: read response")
	}
	return body, nil
}

// rawValue is the provider's {raw, fmt} number wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	Price *struct {
		LongName           string    `json:"longName"`
		Currency           string    `json:"currency"`
		ExchangeName       string    `json:"exchangeName"`
		RegularMarketPrice *rawValue `json:"regularMarketPrice"`
	} `json:"price"`
	FinancialData *struct {
		CurrentPrice    *rawValue `json:"currentPrice"`
		TargetHighPrice *rawValue `json:"targetHighPrice"`
		TargetLowPrice  *rawValue `json:"targetLowPrice"`
		TargetMeanPrice *rawValue `json:"targetMeanPrice"`
		ReturnOnEquity  *rawValue `json:"returnOnEquity"`
		RevenueGrowth   *rawValue `json:"revenueGrowth"`
		DebtToEquity    *rawValue `json:"debtToEquity"`
	} `json:"financialData"`
	DefaultKeyStatistics *struct {
		SharesOutstanding        *rawValue `json:"sharesOutstanding"`
		ImpliedSharesOutstanding *rawValue `json:"impliedSharesOutstanding"`
	} `json:"defaultKeyStatistics"`
	BalanceSheetHistory *struct {
		BalanceSheetStatements []map[string]json.RawMessage `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`
	CashflowStatementHistory *struct {
		CashflowStatements []map[string]json.RawMessage `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`
}

func (c *YahooClient) fetchQuoteSummary(ctx context.Context, ticker string) (*quoteSummaryResult, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.baseURL, url.PathEscape(ticker), quoteSummaryModules)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var parsed quoteSummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "marketdata: parse quote summary")
	}
	if parsed.QuoteSummary.Error != nil {
		return nil, eris.Errorf("marketdata: provider error: %s", parsed.QuoteSummary.Error.Description)
	}
	if len(parsed.QuoteSummary.Result) == 0 {
		return nil, eris.Errorf("marketdata: no results for %s", ticker)
	}
	return &parsed.QuoteSummary.Result[0], nil
}

func (r *quoteSummaryResult) info(ticker string) model.CompanyInfo {
	info := model.CompanyInfo{Symbol: ticker}

	if r.Price != nil {
		info.LongName = r.Price.LongName
		info.Currency = r.Price.Currency
		info.Exchange = r.Price.ExchangeName
		info.RegularMarketPrice = raw(r.Price.RegularMarketPrice)
	}
	if r.FinancialData != nil {
		info.CurrentPrice = raw(r.FinancialData.CurrentPrice)
		info.TargetHighPrice = raw(r.FinancialData.TargetHighPrice)
		info.TargetLowPrice = raw(r.FinancialData.TargetLowPrice)
		info.TargetMeanPrice = raw(r.FinancialData.TargetMeanPrice)
		info.ReturnOnEquity = raw(r.FinancialData.ReturnOnEquity)
		info.RevenueGrowth = raw(r.FinancialData.RevenueGrowth)
		info.DebtToEquity = raw(r.FinancialData.DebtToEquity)
	}
	if r.DefaultKeyStatistics != nil {
		info.SharesOutstanding = raw(r.DefaultKeyStatistics.SharesOutstanding)
		info.ImpliedSharesOutstanding = raw(r.DefaultKeyStatistics.ImpliedSharesOutstanding)
	}
	return info
}

// balanceSheet converts the provider's per-period statement objects into a
// label/period table. Field keys are spaced into the line-item labels the
// normalizer recognizes ("longTermDebt" becomes "Long Term Debt"); the
// normalizer owns all policy about which labels matter.
func (r *quoteSummaryResult) balanceSheet() *model.StatementTable {
	if r.BalanceSheetHistory == nil {
		return nil
	}
	return statementsToTable(r.BalanceSheetHistory.BalanceSheetStatements, nil)
}

// cashFlow converts cash-flow statements and derives the Free Cash Flow row
// as operating cash flow plus (negative) capital expenditures, matching how
// the provider's own summaries compute it.
func (r *quoteSummaryResult) cashFlow() *model.StatementTable {
	if r.CashflowStatementHistory == nil {
		return nil
	}
	return statementsToTable(r.CashflowStatementHistory.CashflowStatements, deriveFreeCashFlow)
}

func statementsToTable(statements []map[string]json.RawMessage, derive func(*model.StatementTable, string)) *model.StatementTable {
	if len(statements) == 0 {
		return nil
	}

	table := model.NewStatementTable()
	for _, stmt := range statements {
		period, ok := statementPeriod(stmt)
		if !ok {
			continue
		}
		for key, rawJSON := range stmt {
			if key == "endDate" || key == "maxAge" {
				continue
			}
			var v rawValue
			if err := json.Unmarshal(rawJSON, &v); err != nil || v.Raw == nil {
				continue
			}
			table.Set(fieldKeyToLabel(key), period, *v.Raw)
		}
		if derive != nil {
			derive(table, period)
		}
	}

	if table.Empty() {
		return nil
	}
	return table
}

func statementPeriod(stmt map[string]json.RawMessage) (string, bool) {
	rawJSON, ok := stmt["endDate"]
	if !ok {
		return "", false
	}
	var end struct {
		Fmt string   `json:"fmt"`
		Raw *float64 `json:"raw"`
	}
	if err := json.Unmarshal(rawJSON, &end); err != nil {
		return "", false
	}
	if end.Fmt != "" {
		return end.Fmt, true
	}
	if end.Raw != nil {
		return time.Unix(int64(*end.Raw), 0).UTC().Format("2006-01-02"), true
	}
	return "", false
}

func deriveFreeCashFlow(table *model.StatementTable, period string) {
	operating, ok := table.Value("Total Cash From Operating Activities", period)
	if !ok {
		return
	}
	capex, ok := table.Value("Capital Expenditures", period)
	if !ok {
		return
	}
	// Capital expenditures are reported negative.
	table.Set("Free Cash Flow", period, operating+capex)
}

// fieldKeyToLabel spaces a camelCase provider key into a title-cased line
// item label: "shortLongTermDebt" -> "Short Long Term Debt".
func fieldKeyToLabel(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 8)
	for i, r := range key {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

func (c *YahooClient) fetchHistory(ctx context.Context, ticker string, tf Timeframe) ([]PricePoint, error) {
	q := url.Values{"interval": {"1d"}}
	if tf.Period != "" {
		q.Set("range", tf.Period)
	} else {
		q.Set("period1", fmt.Sprintf("%d", tf.Start.Unix()))
		q.Set("period2", fmt.Sprintf("%d", tf.End.Unix()))
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "marketdata: parse chart")
	}
	if parsed.Chart.Error != nil {
		return nil, eris.Errorf("marketdata: chart error: %v", parsed.Chart.Error)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, eris.Errorf("marketdata: no chart data for %s", ticker)
	}

	result := parsed.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	var points []PricePoint
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	return points, nil
}

func raw(v *rawValue) *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	out := *v.Raw
	return &out
}
