package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Expr is a rule antecedent evaluated against fuzzified inputs
type Expr interface {
	degree(m memberships) float64
	variables() []*Variable
	resolve() error
	String() string
}

// memberships holds variable name -> term label -> degree
type memberships map[string]map[string]float64

type isExpr struct {
	v     *Variable
	label string
}

// Is matches a variable against one of its terms
func Is(v *Variable, label string) Expr {
	return isExpr{v: v, label: label}
}

func (e isExpr) degree(m memberships) float64 { return m[e.v.Name][e.label] }
func (e isExpr) variables() []*Variable       { return []*Variable{e.v} }
func (e isExpr) String() string               { return e.v.Name + "[" + e.label + "]" }

func (e isExpr) resolve() error {
	if e.v == nil {
		return fmt.Errorf("antecedent references a nil variable")
	}
	if _, ok := e.v.Term(e.label); !ok {
		return fmt.Errorf("variable %q has no term %q", e.v.Name, e.label)
	}
	return nil
}

type opExpr struct {
	op       string
	operands []Expr
}

// And combines antecedents with the minimum t-norm
func And(operands ...Expr) Expr { return opExpr{op: "AND", operands: operands} }

// Or combines antecedents with the maximum s-norm
func Or(operands ...Expr) Expr { return opExpr{op: "OR", operands: operands} }

func (e opExpr) degree(m memberships) float64 {
	var out float64
	if e.op == "AND" {
		out = 1
	}
	for _, o := range e.operands {
		d := o.degree(m)
		if e.op == "AND" {
			out = math.Min(out, d)
		} else {
			out = math.Max(out, d)
		}
	}
	return out
}

func (e opExpr) variables() []*Variable {
	var out []*Variable
	for _, o := range e.operands {
		out = append(out, o.variables()...)
	}
	return out
}

func (e opExpr) resolve() error {
	if len(e.operands) == 0 {
		return fmt.Errorf("%s with no operands", e.op)
	}
	for _, o := range e.operands {
		if err := o.resolve(); err != nil {
			return err
		}
	}
	return nil
}

func (e opExpr) String() string {
	parts := make([]string, len(e.operands))
	for i, o := range e.operands {
		parts[i] = o.String()
	}
	return "(" + strings.Join(parts, " "+e.op+" ") + ")"
}

type notExpr struct{ inner Expr }

// Not complements an antecedent
func Not(inner Expr) Expr { return notExpr{inner: inner} }

func (e notExpr) degree(m memberships) float64 { return 1 - e.inner.degree(m) }
func (e notExpr) variables() []*Variable       { return e.inner.variables() }
func (e notExpr) resolve() error               { return e.inner.resolve() }
func (e notExpr) String() string               { return "NOT " + e.inner.String() }

// Rule maps an antecedent onto a consequent term
type Rule struct {
	Name      string
	If        Expr
	Then      *Variable
	ThenLabel string
}

// NewRule builds a rule "if <antecedent> then <output>[<label>]"
func NewRule(name string, antecedent Expr, output *Variable, label string) Rule {
	return Rule{Name: name, If: antecedent, Then: output, ThenLabel: label}
}

func (r Rule) validate() error {
	if r.If == nil {
		return fmt.Errorf("rule %q: missing antecedent", r.Name)
	}
	if err := r.If.resolve(); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	if r.Then == nil {
		return fmt.Errorf("rule %q: missing consequent", r.Name)
	}
	if _, ok := r.Then.Term(r.ThenLabel); !ok {
		return fmt.Errorf("rule %q: variable %q has no term %q", r.Name, r.Then.Name, r.ThenLabel)
	}
	return nil
}

func (r Rule) String() string {
	return fmt.Sprintf("IF %s THEN %s[%s]", r.If, r.Then.Name, r.ThenLabel)
}
