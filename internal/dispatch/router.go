package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"telex/internal/config"
	"telex/internal/services"
)

// Rule is one compiled routing entry.
type Rule struct {
	Name       string
	Keyword    string
	Subject    string
	Recipients []string

	pattern *regexp.Regexp
	folded  string
}

// Decision is the outcome of routing one text.
type Decision struct {
	// Route is the matching rule name, empty when the defaults apply.
	Route      string
	Subject    string
	Recipients []string
}

// Matched reports whether a rule (rather than the defaults) decided.
func (d Decision) Matched() bool { return d.Route != "" }

// Router evaluates rules in order.
type Router struct {
	rules             []Rule
	defaultSubject    string
	defaultRecipients []string
}

// NewRouter compiles the configured routes. A keyword that does not compile
// is a configuration error.
func NewRouter(cfg *config.Config) (*Router, error) {
	folder := cases.Fold()
	rules := make([]Rule, 0, len(cfg.Routes))
	for _, route := range cfg.Routes {
		rule := Rule{
			Name:       route.Name,
			Keyword:    route.Keyword,
			Subject:    route.Subject,
			Recipients: append([]string(nil), route.Recipients...),
		}
		switch route.Match {
		case config.MatchSubstring:
			rule.folded = folder.String(route.Keyword)
		default:
			pattern, err := regexp.Compile("(?i)" + route.Keyword)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "dispatch", "compile route",
					fmt.Sprintf("route %q keyword", route.Name), err)
			}
			rule.pattern = pattern
		}
		rules = append(rules, rule)
	}
	return &Router{
		rules:             rules,
		defaultSubject:    cfg.Mail.DefaultSubject,
		defaultRecipients: []string{cfg.Mail.DefaultRecipient},
	}, nil
}

// Rules returns the compiled rules in evaluation order.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Route returns the decision of the first matching rule, or the defaults.
func (r *Router) Route(text string) Decision {
	var folded string
	foldedReady := false
	for _, rule := range r.rules {
		if rule.pattern != nil {
			if rule.pattern.MatchString(text) {
				return rule.decision()
			}
			continue
		}
		if !foldedReady {
			folded = cases.Fold().String(text)
			foldedReady = true
		}
		if strings.Contains(folded, rule.folded) {
			return rule.decision()
		}
	}
	return Decision{
		Subject:    r.defaultSubject,
		Recipients: append([]string(nil), r.defaultRecipients...),
	}
}

func (rule Rule) decision() Decision {
	return Decision{
		Route:      rule.Name,
		Subject:    rule.Subject,
		Recipients: append([]string(nil), rule.Recipients...),
	}
}
