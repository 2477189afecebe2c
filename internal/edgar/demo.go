package edgar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// demoFinancials is one fiscal year of headline numbers, in millions.
type demoFinancials struct {
	Revenue         int
	OperatingIncome int
	OperatingMargin float64
	NetIncome       int
}

var demoData = map[string]struct {
	Name  string
	Years map[string]demoFinancials
}{
	"GOOGL": {
		Name: "Alphabet Inc.",
		Years: map[string]demoFinancials{
			"2022": {282836, 74842, 26.5, 59972},
			"2023": {307394, 84267, 27.4, 73795},
			"2024": {334000, 89000, 26.7, 76000},
		},
	},
	"MSFT": {
		Name: "Microsoft Corporation",
		Years: map[string]demoFinancials{
			"2022": {198270, 83383, 42.1, 72361},
			"2023": {211915, 89690, 42.3, 72361},
			"2024": {230000, 95000, 41.3, 78000},
		},
	},
	"NVDA": {
		Name: "NVIDIA Corporation",
		Years: map[string]demoFinancials{
			"2022": {26914, 4368, 16.2, 4368},
			"2023": {60922, 19558, 32.1, 4368},
			"2024": {79000, 25000, 31.6, 20000},
		},
	},
}

const demoTemplate = `<!DOCTYPE html>
<html>
<head><title>%[1]s Form 10-K %[2]s</title></head>
<body>
<h1>%[3]s - Annual Report (Form 10-K) - %[2]s</h1>

<h2>Business Overview</h2>
<p>%[3]s is a leading technology company that operates in various segments including cloud computing,
software development, and hardware manufacturing. Our revenue for %[2]s was driven by strong performance
across all business segments.</p>

<h2>Risk Factors</h2>
<p>Key risk factors include market competition, regulatory changes, cybersecurity threats, and economic
uncertainty. We continue to invest in risk mitigation strategies and compliance programs.</p>

<h2>Financial Highlights %[2]s</h2>
<table>
<tr><th>Metric</th><th>Value</th></tr>
<tr><td>Total revenue</td><td>$%[4]dM</td></tr>
<tr><td>Operating income</td><td>$%[5]dM</td></tr>
<tr><td>Operating margin</td><td>%[6].1f%%</td></tr>
<tr><td>Net income</td><td>$%[7]dM</td></tr>
</table>

<h2>Management Discussion and Analysis</h2>
<p>Management believes the company is well-positioned for continued growth through innovation,
strategic partnerships, and market expansion. We expect continued investment in research and
development to drive future performance.</p>

<h2>Future Outlook</h2>
<p>Looking ahead, we anticipate continued growth in our core business areas. We remain committed
to delivering value to shareholders while investing in long-term strategic initiatives.</p>
</body>
</html>
`

// CreateDemoFilings writes small synthetic 10-K filings into outDir so the
// whole pipeline can run without SEC access. Returns the created paths.
func CreateDemoFilings(outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create demo dir: %w", err)
	}

	var created []string
	for symbol, company := range demoData {
		for year, fin := range company.Years {
			content := fmt.Sprintf(demoTemplate,
				symbol, year, company.Name,
				fin.Revenue, fin.OperatingIncome, fin.OperatingMargin, fin.NetIncome)
			filename := fmt.Sprintf("%s_10-K_%s_demo.htm", strings.ToUpper(symbol), year)
			path := filepath.Join(outDir, filename)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return created, fmt.Errorf("write %s: %w", filename, err)
			}
			created = append(created, path)
		}
	}
	return created, nil
}
