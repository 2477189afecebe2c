package section

import "strings"

// Section type categories.
const (
	TypeFinancial = "financial"
	TypeRisk      = "risk"
	TypeBusiness  = "business"
	TypeLegal     = "legal"
	TypeMDA       = "mda"
	TypeGeneral   = "general"
)

// Classifier maps a section title to a coarse topical category by keyword
// substring matching. The rule order is the match precedence. It is a
// heuristic policy, not a contract: callers may substitute their own table.
type Classifier struct {
	rules []rule
}

type rule struct {
	category string
	keywords []string
}

// DefaultClassifier returns the standard 10-K category table.
func DefaultClassifier() Classifier {
	return Classifier{rules: []rule{
		{TypeFinancial, []string{"financial", "statement", "income", "balance", "cash flow"}},
		{TypeRisk, []string{"risk", "factor"}},
		{TypeBusiness, []string{"business", "overview", "operation"}},
		{TypeLegal, []string{"legal", "proceeding", "litigation"}},
		{TypeMDA, []string{"management", "discussion", "analysis", "md&a"}},
	}}
}

// Classify returns the first matching category, or TypeGeneral.
func (c Classifier) Classify(title string) string {
	t := strings.ToLower(title)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.category
			}
		}
	}
	return TypeGeneral
}
