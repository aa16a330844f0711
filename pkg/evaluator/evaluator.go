package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/thomasrohde/aether/pkg/ast"
	"github.com/thomasrohde/aether/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart   TraceEventType = "run_start"
	TraceRunEnd     TraceEventType = "run_end"
	TraceStmtStart  TraceEventType = "stmt_start"
	TraceStmtEnd    TraceEventType = "stmt_end"
	TraceBlockEnter TraceEventType = "block_enter"
	TraceBlockExit  TraceEventType = "block_exit"
	TraceDeclare    TraceEventType = "declare"
	TraceAssign     TraceEventType = "assign"
	TraceError      TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Stdout receives the output of print statements. Nil discards it.
	Stdout io.Writer
	Trace  func(event TraceEvent)
	RunID  string
	Budget Budget
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Value is the value of the last top-level expression statement, or Nil.
	Value Value
	// Env is the global scope the program ran in.
	Env *Env
}

// RuntimeError represents an error raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	// Err is the underlying error, if any (for example ErrUndefined).
	Err error
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Kind returns the user-facing error kind, e.g. "TypeError".
func (e *RuntimeError) Kind() string {
	return diagnostics.KindName(e.Code)
}

// Diagnostic converts the error into a diagnostic for rendering.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	out     io.Writer
	budget  Budget
	tracker BudgetTracker
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// Execute runs an Aether program against a fresh global scope.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return ExecuteIn(ctx, program, NewEnv(nil), opts)
}

// ExecuteIn runs an Aether program with env as its global scope. Bindings
// made before a failing statement stay in env.
func ExecuteIn(ctx context.Context, program *ast.Program, env *Env, opts ExecOptions) (*ExecResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}
	ev := &evaluator{
		ctx:     ctx,
		opts:    opts,
		out:     out,
		budget:  opts.Budget,
		tracker: BudgetTracker{Start: time.Now()},
	}

	// Set up context timeout for time budget
	if ev.budget.TimeMs != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*ev.budget.TimeMs)*time.Millisecond)
		defer cancel()
		ev.ctx = ctx
	}

	span := program.Span
	ev.emit(TraceRunStart, &span, nil)

	val, err := ev.executeStatements(program.Statements, env)
	if err != nil {
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) {
			ev.emit(TraceError, rtErr.Span, map[string]any{
				"code":    rtErr.Code,
				"kind":    rtErr.Kind(),
				"message": rtErr.Message,
			})
		}
		ev.emit(TraceRunEnd, &span, map[string]any{"ok": false})
		return &ExecResult{Value: NewNil(), Env: env}, err
	}

	ev.emit(TraceRunEnd, &span, map[string]any{"ok": true})
	return &ExecResult{Value: val, Env: env}, nil
}

// checkInterrupt enforces the time budget and context cancellation.
func (ev *evaluator) checkInterrupt(span *ast.Span) error {
	if err := ev.budget.checkTime(&ev.tracker, span); err != nil {
		return err
	}
	if err := ev.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ev.budget.TimeMs != nil {
			return &RuntimeError{
				Code:    diagnostics.EBudget,
				Message: fmt.Sprintf("time budget exceeded (%dms)", *ev.budget.TimeMs),
				Span:    span,
				Err:     err,
			}
		}
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("execution interrupted: %v", err),
			Span:    span,
			Err:     err,
		}
	}
	return nil
}

func (ev *evaluator) executeStatements(stmts []ast.Stmt, env *Env) (Value, error) {
	var lastVal Value = NewNil()

	for _, stmt := range stmts {
		span := stmt.NodeSpan()
		if err := ev.checkInterrupt(&span); err != nil {
			return nil, err
		}

		ev.emit(TraceStmtStart, &span, map[string]any{"kind": stmt.Kind()})

		switch s := stmt.(type) {
		case *ast.Declaration:
			if err := ev.execDeclaration(s, env); err != nil {
				return nil, err
			}

		case *ast.Assignment:
			if err := ev.execAssignment(s, env); err != nil {
				return nil, err
			}

		case *ast.ExprStmt:
			val, err := ev.evalExpr(s.Expr, env)
			if err != nil {
				return nil, err
			}
			lastVal = val

		case *ast.PrintStmt:
			if err := ev.execPrint(s, env); err != nil {
				return nil, err
			}

		case *ast.IfStmt:
			if err := ev.execIf(s, env); err != nil {
				return nil, err
			}

		case *ast.WhileStmt:
			if err := ev.execWhile(s, env); err != nil {
				return nil, err
			}

		case *ast.Block:
			if err := ev.executeBlock(s, env); err != nil {
				return nil, err
			}

		default:
			return nil, &RuntimeError{
				Code:    diagnostics.EType,
				Message: fmt.Sprintf("unsupported statement type: %T", stmt),
				Span:    &span,
			}
		}

		ev.emit(TraceStmtEnd, &span, nil)
	}

	return lastVal, nil
}

// executeBlock runs a block in a fresh child scope that is dropped on exit.
func (ev *evaluator) executeBlock(block *ast.Block, env *Env) error {
	scope := env.Child()
	span := block.Span
	ev.emit(TraceBlockEnter, &span, map[string]any{"depth": scope.Depth()})
	_, err := ev.executeStatements(block.Statements, scope)
	if err != nil {
		return err
	}
	ev.emit(TraceBlockExit, &span, map[string]any{"depth": scope.Depth()})
	return nil
}

func (ev *evaluator) execDeclaration(s *ast.Declaration, env *Env) error {
	val, err := ev.evalExpr(s.Value, env)
	if err != nil {
		return err
	}
	if err := env.Declare(s.Name, val); err != nil {
		span := s.NameSpan
		return &RuntimeError{Code: diagnostics.ERedeclared, Message: err.Error(), Span: &span, Err: err}
	}
	span := s.Span
	ev.emit(TraceDeclare, &span, map[string]any{
		"name":  s.Name,
		"value": valueToRaw(val),
		"depth": env.Depth(),
	})
	return nil
}

func (ev *evaluator) execAssignment(s *ast.Assignment, env *Env) error {
	val, err := ev.evalExpr(s.Value, env)
	if err != nil {
		return err
	}
	if err := env.Assign(s.Name, val); err != nil {
		span := s.NameSpan
		return &RuntimeError{Code: diagnostics.EUndefined, Message: err.Error(), Span: &span, Err: err}
	}
	span := s.Span
	ev.emit(TraceAssign, &span, map[string]any{
		"name":  s.Name,
		"value": valueToRaw(val),
	})
	return nil
}

func (ev *evaluator) execPrint(s *ast.PrintStmt, env *Env) error {
	parts := make([]string, len(s.Args))
	for i, arg := range s.Args {
		val, err := ev.evalExpr(arg, env)
		if err != nil {
			return err
		}
		parts[i] = Display(val)
	}
	// One write per statement so output is never held back.
	if _, err := io.WriteString(ev.out, strings.Join(parts, " ")+"\n"); err != nil {
		span := s.Span
		return &RuntimeError{Code: diagnostics.EIO, Message: fmt.Sprintf("print failed: %v", err), Span: &span, Err: err}
	}
	return nil
}

func (ev *evaluator) evalCondition(cond ast.Expr, keyword string, env *Env) (bool, error) {
	val, err := ev.evalExpr(cond, env)
	if err != nil {
		return false, err
	}
	b, ok := val.(Bool)
	if !ok {
		span := cond.NodeSpan()
		return false, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("'%s' condition must be a bool, got %s", keyword, TypeName(val)),
			Span:    &span,
		}
	}
	return b.Value, nil
}

func (ev *evaluator) execIf(s *ast.IfStmt, env *Env) error {
	ok, err := ev.evalCondition(s.Cond, "if", env)
	if err != nil {
		return err
	}
	if ok {
		return ev.executeBlock(s.Then, env)
	}
	if s.Else != nil {
		return ev.executeBlock(s.Else, env)
	}
	return nil
}

func (ev *evaluator) execWhile(s *ast.WhileStmt, env *Env) error {
	span := s.Span
	for {
		if err := ev.checkInterrupt(&span); err != nil {
			return err
		}
		ok, err := ev.evalCondition(s.Cond, "while", env)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := ev.budget.checkIteration(&ev.tracker, &span); err != nil {
			return err
		}
		ev.tracker.Iterations++
		if err := ev.executeBlock(s.Body, env); err != nil {
			return err
		}
	}
}

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return NewNumber(e.Value), nil

	case *ast.StringLiteral:
		return NewString(e.Value), nil

	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.NilLiteral:
		return NewNil(), nil

	case *ast.Identifier:
		val, err := env.Lookup(e.Name)
		if err != nil {
			span := e.Span
			return nil, &RuntimeError{Code: diagnostics.EUndefined, Message: err.Error(), Span: &span, Err: err}
		}
		return val, nil

	case *ast.BinaryExpr:
		return ev.evalBinaryOp(e, env)

	case *ast.UnaryExpr:
		return ev.evalUnary(e, env)
	}

	var span *ast.Span
	if expr != nil {
		s := expr.NodeSpan()
		span = &s
	}
	return nil, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unsupported expression type: %T", expr),
		Span:    span,
	}
}

func (ev *evaluator) evalLogical(e *ast.BinaryExpr, env *Env) (Value, error) {
	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	lb, ok := left.(Bool)
	if !ok {
		return nil, logicalOperandError(e.Op, left, e.Left.NodeSpan())
	}
	// Short-circuit: the right operand is not evaluated.
	if e.Op == ast.OpAnd && !lb.Value {
		return NewBool(false), nil
	}
	if e.Op == ast.OpOr && lb.Value {
		return NewBool(true), nil
	}

	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}
	rb, ok := right.(Bool)
	if !ok {
		return nil, logicalOperandError(e.Op, right, e.Right.NodeSpan())
	}
	return rb, nil
}

func logicalOperandError(op ast.BinaryOp, got Value, span ast.Span) error {
	return &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("'%s' requires bool operands, got %s", op, TypeName(got)),
		Span:    &span,
	}
}

func (ev *evaluator) evalBinaryOp(e *ast.BinaryExpr, env *Env) (Value, error) {
	if e.Op.IsLogical() {
		return ev.evalLogical(e, env)
	}

	left, err := ev.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	span := e.Span

	switch e.Op {
	case ast.OpAdd:
		// Number + Number or String + String
		if lNum, ok := left.(Number); ok {
			if rNum, ok := right.(Number); ok {
				return NewNumber(lNum.Value + rNum.Value), nil
			}
		}
		if lStr, ok := left.(String); ok {
			if rStr, ok := right.(String); ok {
				return NewString(lStr.Value + rStr.Value), nil
			}
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("'+' requires two numbers or two strings, got %s and %s", TypeName(left), TypeName(right)),
			Span:    &span,
		}

	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		lNum, lOk := left.(Number)
		rNum, rOk := right.(Number)
		if !lOk || !rOk {
			return nil, &RuntimeError{
				Code:    diagnostics.EType,
				Message: fmt.Sprintf("'%s' requires two numbers, got %s and %s", e.Op, TypeName(left), TypeName(right)),
				Span:    &span,
			}
		}
		switch e.Op {
		case ast.OpSub:
			return NewNumber(lNum.Value - rNum.Value), nil
		case ast.OpMul:
			return NewNumber(lNum.Value * rNum.Value), nil
		case ast.OpDiv:
			if rNum.Value == 0 {
				return nil, &RuntimeError{Code: diagnostics.EArithmetic, Message: "division by zero", Span: &span}
			}
			return NewNumber(lNum.Value / rNum.Value), nil
		case ast.OpMod:
			if rNum.Value == 0 {
				return nil, &RuntimeError{Code: diagnostics.EArithmetic, Message: "modulo by zero", Span: &span}
			}
			return NewNumber(math.Mod(lNum.Value, rNum.Value)), nil
		}

	case ast.OpEqEq:
		return NewBool(Equal(left, right)), nil

	case ast.OpNeq:
		return NewBool(!Equal(left, right)), nil

	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		if lNum, ok := left.(Number); ok {
			if rNum, ok := right.(Number); ok {
				return NewBool(compareOrdered(e.Op, lNum.Value, rNum.Value)), nil
			}
		}
		if lStr, ok := left.(String); ok {
			if rStr, ok := right.(String); ok {
				return NewBool(compareOrdered(e.Op, lStr.Value, rStr.Value)), nil
			}
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("'%s' requires two numbers or two strings, got %s and %s", e.Op, TypeName(left), TypeName(right)),
			Span:    &span,
		}
	}

	return nil, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unknown operator '%s'", e.Op),
		Span:    &span,
	}
}

func compareOrdered[T float64 | string](op ast.BinaryOp, l, r T) bool {
	switch op {
	case ast.OpGt:
		return l > r
	case ast.OpLt:
		return l < r
	case ast.OpGtEq:
		return l >= r
	case ast.OpLtEq:
		return l <= r
	}
	return false
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr, env *Env) (Value, error) {
	operand, err := ev.evalExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	span := e.Span

	switch e.Op {
	case ast.OpNeg:
		if num, ok := operand.(Number); ok {
			return NewNumber(-num.Value), nil
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unary '-' requires a number, got %s", TypeName(operand)),
			Span:    &span,
		}

	case ast.OpNot:
		if b, ok := operand.(Bool); ok {
			return NewBool(!b.Value), nil
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("'not' requires a bool, got %s", TypeName(operand)),
			Span:    &span,
		}
	}

	return nil, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unknown unary operator '%s'", e.Op),
		Span:    &span,
	}
}
