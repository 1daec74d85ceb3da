// Package stocks quotes share prices and, from cron, checks a watch file
// of price thresholds and alerts the operator when one is crossed.
package stocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Stocks module
   /stock ticker: current price for the ticker`

// baseURL is swapped out by the tests.
var baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// Threshold is one watch-file entry. A zero bound is ignored.
type Threshold struct {
	Below float64 `json:"below"`
	Above float64 `json:"above"`
}

// Component quotes and watches share prices.
type Component struct {
	inv       *dispatch.Invocation
	watchFile string
	client    *http.Client
}

// New builds the handler for one invocation.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	return &Component{
		inv:       inv,
		watchFile: inv.Config.Components.Stocks.WatchFile,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Price fetches the latest price for a ticker.
func (c *Component) Price(ticker string) (float64, string, error) {
	endpoint := fmt.Sprintf("%s/%s", baseURL, url.PathEscape(ticker))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("stock request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("stock request failed: status %d", resp.StatusCode)
	}
	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return 0, "", err
	}
	if len(chart.Chart.Result) == 0 {
		return 0, "", fmt.Errorf("no data for %s", ticker)
	}
	meta := chart.Chart.Result[0].Meta
	return meta.RegularMarketPrice, meta.Currency, nil
}

// loadWatch reads the watch file (ticker to thresholds).
func (c *Component) loadWatch() (map[string]Threshold, error) {
	if c.watchFile == "" {
		return nil, fmt.Errorf("no stock watch file configured")
	}
	data, err := os.ReadFile(c.watchFile)
	if err != nil {
		return nil, err
	}
	watch := make(map[string]Threshold)
	if err := json.Unmarshal(data, &watch); err != nil {
		return nil, fmt.Errorf("watch file %s not understood: %w", c.watchFile, err)
	}
	return watch, nil
}

// CheckWatch prices every watched ticker and reports crossed thresholds.
func (c *Component) CheckWatch() ([]string, error) {
	watch, err := c.loadWatch()
	if err != nil {
		return nil, err
	}
	var alerts []string
	for ticker, th := range watch {
		price, currency, err := c.Price(ticker)
		if err != nil {
			alerts = append(alerts, fmt.Sprintf("Could not price %s: %v", ticker, err))
			continue
		}
		if th.Below > 0 && price < th.Below {
			alerts = append(alerts, fmt.Sprintf("%s is at %.2f %s, below your %.2f threshold",
				ticker, price, currency, th.Below))
		}
		if th.Above > 0 && price > th.Above {
			alerts = append(alerts, fmt.Sprintf("%s is at %.2f %s, above your %.2f threshold",
				ticker, price, currency, th.Above))
		}
	}
	return alerts, nil
}

// TelegramMessage handles /stock.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	ticker := strings.ToUpper(strings.TrimSpace(msg.Text))
	if ticker == "" {
		return c.inv.Reply("Which ticker? /stock <ticker>")
	}
	price, currency, err := c.Price(ticker)
	if err != nil {
		return c.inv.Reply(fmt.Sprintf("Could not get a price for %s, sorry", ticker))
	}
	return c.inv.Reply(fmt.Sprintf("%s: %.2f %s", ticker, price, currency))
}

// CommandLine checks the watch file and alerts the operator, for use
// from cron. Nothing is sent when no threshold is crossed.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	alerts, err := c.CheckWatch()
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}
	return c.inv.Notify(strings.Join(alerts, "\n"))
}
