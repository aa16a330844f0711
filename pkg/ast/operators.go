package ast

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpOr   BinaryOp = "or"
	OpAnd  BinaryOp = "and"
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpLt   BinaryOp = "<"
	OpLtEq BinaryOp = "<="
	OpGt   BinaryOp = ">"
	OpGtEq BinaryOp = ">="
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
)

// UnaryOp represents a prefix operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "not"
)

// Binding strengths, lowest first.
const (
	PrecLowest = iota
	PrecOr
	PrecAnd
	PrecNot
	PrecComparison
	PrecAdditive
	PrecMultiplicative
	PrecUnary
)

// Assoc is the associativity of a binary operator.
type Assoc int

const (
	AssocLeft Assoc = iota
	AssocRight
)

// OpInfo describes how a binary operator binds.
type OpInfo struct {
	Prec  int
	Assoc Assoc
}

// binaryOps is the single source of truth for operator binding, shared by the
// parser and the formatter.
var binaryOps = map[BinaryOp]OpInfo{
	OpOr:   {PrecOr, AssocLeft},
	OpAnd:  {PrecAnd, AssocLeft},
	OpEqEq: {PrecComparison, AssocLeft},
	OpNeq:  {PrecComparison, AssocLeft},
	OpLt:   {PrecComparison, AssocLeft},
	OpLtEq: {PrecComparison, AssocLeft},
	OpGt:   {PrecComparison, AssocLeft},
	OpGtEq: {PrecComparison, AssocLeft},
	OpAdd:  {PrecAdditive, AssocLeft},
	OpSub:  {PrecAdditive, AssocLeft},
	OpMul:  {PrecMultiplicative, AssocLeft},
	OpDiv:  {PrecMultiplicative, AssocLeft},
	OpMod:  {PrecMultiplicative, AssocLeft},
}

// Info returns the binding information for op.
func (op BinaryOp) Info() (OpInfo, bool) {
	info, ok := binaryOps[op]
	return info, ok
}

// Precedence returns the binding strength of op, or PrecLowest if unknown.
func (op BinaryOp) Precedence() int {
	return binaryOps[op].Prec
}

// Precedence returns the binding strength of a prefix operator.
func (op UnaryOp) Precedence() int {
	if op == OpNot {
		return PrecNot
	}
	return PrecUnary
}

// IsComparison reports whether op yields a boolean from two ordered or equatable operands.
func (op BinaryOp) IsComparison() bool {
	return binaryOps[op].Prec == PrecComparison
}

// IsLogical reports whether op is a short-circuiting boolean operator.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}
