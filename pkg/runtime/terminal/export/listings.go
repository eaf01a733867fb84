package export

import (
	"fmt"
	"text/template"

	"github.com/de-tools/market-atlas/pkg/models/domain"
)

const tickerTemplate = `
=== {{.Symbol}} Ticker Information ===

Basic Information:
Company Name: {{or .LongName .ShortName "N/A"}}
Exchange: {{or .Exchange "N/A"}}
Instrument Type: {{or .InstrumentType "N/A"}}
Timezone: {{or .Timezone "N/A"}}
Sector: {{or .Sector "N/A"}}
Industry: {{or .Industry "N/A"}}

Financial Data:
Current Price: {{price .CurrentPrice}} {{.Currency}}
52 Week High: {{price .FiftyTwoWeekHigh}} {{.Currency}}
52 Week Low: {{price .FiftyTwoWeekLow}} {{.Currency}}
Market Cap: {{cap .MarketCap}}

Business Summary:
{{summary .Summary}}
`

const summaryLimit = 500

func (c *Reporter) HandleTicker(info *domain.TickerInfo) error {
	t, err := template.New("ticker").Funcs(template.FuncMap{
		"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"cap": func(v float64) string {
			if v <= 0 {
				return "N/A"
			}
			return fmt.Sprintf("$%.2f", v)
		},
		"summary": func(s string) string {
			if s == "" {
				return "N/A"
			}
			if r := []rune(s); len(r) > summaryLimit {
				return string(r[:summaryLimit]) + "..."
			}
			return s
		},
	}).Parse(tickerTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, info)
}

const runsTemplate = `{{range .}}{{.ID}}  {{.Command}}  {{.Symbol}}  {{.StartedAt.Format "2006-01-02 15:04:05"}}
{{range .Artifacts}}    {{.Kind}}  {{.Path}}
{{end}}{{else}}No runs recorded.
{{end}}`

// HandleRuns lists ledger runs with their artifact paths.
func (c *Reporter) HandleRuns(runs []*domain.Run) error {
	t, err := template.New("runs").Parse(runsTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, runs)
}
