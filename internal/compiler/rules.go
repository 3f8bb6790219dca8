package compiler

import "kozi/internal/token"

// precedence is the Pratt precedence ladder, lowest to highest.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

// parseFn is a prefix or infix parse rule. canAssign is true when the
// current precedence context is at or below assignment, per parsePrecedence.
type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[token.Kind]rule

func init() {
	rules = map[token.Kind]rule{
		token.LeftParen:    {prefix: (*Compiler).grouping},
		token.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, prec: precTerm},
		token.Plus:         {infix: (*Compiler).binary, prec: precTerm},
		token.Slash:        {infix: (*Compiler).binary, prec: precFactor},
		token.Star:         {infix: (*Compiler).binary, prec: precFactor},
		token.Bang:         {prefix: (*Compiler).unary},
		token.BangEqual:    {infix: (*Compiler).binary, prec: precEquality},
		token.EqualEqual:   {infix: (*Compiler).binary, prec: precEquality},
		token.Greater:      {infix: (*Compiler).binary, prec: precComparison},
		token.GreaterEqual: {infix: (*Compiler).binary, prec: precComparison},
		token.Less:         {infix: (*Compiler).binary, prec: precComparison},
		token.LessEqual:    {infix: (*Compiler).binary, prec: precComparison},
		token.Number:       {prefix: (*Compiler).number},
		token.String:       {prefix: (*Compiler).stringLiteral},
		token.Identifier:   {prefix: (*Compiler).variable},
		token.False:        {prefix: (*Compiler).literal},
		token.True:         {prefix: (*Compiler).literal},
		token.Nil:          {prefix: (*Compiler).literal},
		token.And:          {infix: (*Compiler).and_, prec: precAnd},
		token.Or:           {infix: (*Compiler).or_, prec: precOr},
	}
}

func getRule(k token.Kind) rule {
	return rules[k]
}
