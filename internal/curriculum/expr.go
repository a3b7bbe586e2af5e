package curriculum

import (
	"strings"
)

// Catalog connectives as published in the curriculum feed
const (
	tokenAnd = "Y"
	tokenOr  = "O"
)

// Expr is a parsed prerequisite expression. Leaves are course codes;
// interior nodes are the catalog's Y/O connectives.
type Expr interface {
	// Codes returns every course code referenced by the expression,
	// in source order, without duplicates.
	Codes() []string

	// Satisfied evaluates the expression against a predicate that
	// reports whether a single prerequisite code is met.
	Satisfied(have func(code string) bool) bool

	// Missing returns the leaf codes that kept Satisfied from holding.
	// For an Or with no satisfied branch every alternative is reported.
	Missing(have func(code string) bool) []string
}

// Leaf is a single required course code.
type Leaf struct {
	Code string
}

func (l Leaf) Codes() []string { return []string{l.Code} }

func (l Leaf) Satisfied(have func(string) bool) bool { return have(l.Code) }

func (l Leaf) Missing(have func(string) bool) []string {
	if have(l.Code) {
		return nil
	}
	return []string{l.Code}
}

// And requires every term to be satisfied.
type And struct {
	Terms []Expr
}

func (a And) Codes() []string { return collectCodes(a.Terms) }

func (a And) Satisfied(have func(string) bool) bool {
	for _, t := range a.Terms {
		if !t.Satisfied(have) {
			return false
		}
	}
	return true
}

func (a And) Missing(have func(string) bool) []string {
	var missing []string
	for _, t := range a.Terms {
		missing = append(missing, t.Missing(have)...)
	}
	return missing
}

// Or requires at least one term to be satisfied.
type Or struct {
	Terms []Expr
}

func (o Or) Codes() []string { return collectCodes(o.Terms) }

func (o Or) Satisfied(have func(string) bool) bool {
	if len(o.Terms) == 0 {
		return true
	}
	for _, t := range o.Terms {
		if t.Satisfied(have) {
			return true
		}
	}
	return false
}

func (o Or) Missing(have func(string) bool) []string {
	if o.Satisfied(have) {
		return nil
	}
	var missing []string
	for _, t := range o.Terms {
		missing = append(missing, t.Missing(have)...)
	}
	return missing
}

// Alternatives flattens an expression into its satisfiable alternatives:
// each inner slice is one conjunction of codes, any one of which meets
// the requirement under strict-OR evaluation. An always-satisfied
// expression yields no alternatives.
func Alternatives(e Expr) [][]string {
	switch v := e.(type) {
	case Or:
		var alts [][]string
		for _, t := range v.Terms {
			alts = append(alts, Alternatives(t)...)
		}
		return alts
	case And:
		if len(v.Terms) == 0 {
			return nil
		}
		return [][]string{v.Codes()}
	case Leaf:
		return [][]string{{v.Code}}
	default:
		return nil
	}
}

func collectCodes(terms []Expr) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, t := range terms {
		for _, c := range t.Codes() {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			codes = append(codes, c)
		}
	}
	return codes
}

// ParseRequisites parses a raw catalog requisite expression into a tree.
//
// The catalog feed is not reliably parenthesized, so parentheses are
// stripped before tokenizing and the expression is read flat: "O" splits
// the token stream into alternatives, each alternative is an "Y"
// conjunction of codes. "MATE1105 Y FISI1018 O FISI1028" therefore parses
// as Or(And(MATE1105, FISI1018), FISI1028). An empty or blank expression
// parses to an empty And, which is always satisfied.
func ParseRequisites(raw string) Expr {
	cleaned := strings.NewReplacer("(", " ", ")", " ").Replace(raw)
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return And{}
	}

	var alternatives []Expr
	var current []Expr

	flush := func() {
		if len(current) == 0 {
			return
		}
		if len(current) == 1 {
			alternatives = append(alternatives, current[0])
		} else {
			alternatives = append(alternatives, And{Terms: current})
		}
		current = nil
	}

	for _, tok := range tokens {
		switch tok {
		case tokenAnd:
			// connective between codes, nothing to emit
		case tokenOr:
			flush()
		default:
			current = append(current, Leaf{Code: tok})
		}
	}
	flush()

	switch len(alternatives) {
	case 0:
		return And{}
	case 1:
		return alternatives[0]
	default:
		return Or{Terms: alternatives}
	}
}
