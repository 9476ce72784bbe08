package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"edu-crawler/pkg/models"
)

// Value computes one field from the nodes a rule selected. Absence is
// reported as a nil value, never as an error.
type Value func(sel *goquery.Selection) any

// Rule binds a selector to a record field. An empty Selector evaluates the
// value against the scope itself.
type Rule struct {
	Field    string
	Selector string
	Value    Value
}

// Rules is a declarative extraction table, evaluated in order.
type Rules []Rule

func (rs Rules) Apply(scope *goquery.Selection) models.Fields {
	fields := make(models.Fields, 0, len(rs))
	for _, rule := range rs {
		target := scope
		if rule.Selector != "" {
			target = scope.Find(rule.Selector)
		}
		fields = append(fields, models.Field{Name: rule.Field, Value: rule.Value(target)})
	}
	return fields
}

// Text reads the own text of the first match, cleaned and trimmed.
func Text(field, selector string, clean ...CleanFunc) Rule {
	return Rule{Field: field, Selector: selector, Value: TextValue(clean...)}
}

// Attr reads an attribute of the first match.
func Attr(field, selector, attr string, clean ...CleanFunc) Rule {
	return Rule{Field: field, Selector: selector, Value: AttrValue(attr, clean...)}
}

func Func(field, selector string, fn Value) Rule {
	return Rule{Field: field, Selector: selector, Value: fn}
}

func TextValue(clean ...CleanFunc) Value {
	return func(sel *goquery.Selection) any {
		return models.Text(strings.TrimSpace(CleanString(OwnText(sel.First()), clean...)))
	}
}

func AttrValue(attr string, clean ...CleanFunc) Value {
	return func(sel *goquery.Selection) any {
		v, ok := sel.First().Attr(attr)
		if !ok {
			return (*string)(nil)
		}
		return models.Text(strings.TrimSpace(CleanString(v, clean...)))
	}
}
