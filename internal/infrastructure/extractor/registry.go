package extractor

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PartialArticle carries whatever fields a markup rule could locate.
// Absent author/date stay zero-valued; only a missing body fails extraction.
type PartialArticle struct {
	Title       string
	Author      string
	PublishedAt time.Time
	Body        string
}

// Rule captures the markup structure of a single source site. Adding a
// source means adding a rule, never branching on domains in the pipeline.
type Rule interface {
	Name() string
	ExtractFields(doc *goquery.Document) PartialArticle
}

// Registry keeps a mapping from rule names to their implementations.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry builds a registry preloaded with the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{rules: map[string]Rule{}}
	r.Register(PublicRule{})
	r.Register(VSDRule{})
	r.Register(RSSContentRule{})
	return r
}

// Register adds or replaces a rule implementation.
func (r *Registry) Register(rule Rule) {
	if r.rules == nil {
		r.rules = map[string]Rule{}
	}
	r.rules[rule.Name()] = rule
}

// Resolve returns a rule by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Rule, error) {
	if rule, ok := r.rules[name]; ok {
		return rule, nil
	}
	return nil, fmt.Errorf("extraction rule %s is not registered", name)
}
