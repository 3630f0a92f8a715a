package ast

// Construction helpers. The parser builds nodes directly; these exist so
// tests and tools can assemble trees without page-long struct literals.

// Program builds a program root from top-level statements.
func Program(stmts ...*Node) *Node { return &Node{Kind: KindProgram, Children: stmts} }

// Block builds a statement block.
func Block(stmts ...*Node) *Node { return &Node{Kind: KindBlock, Children: stmts} }

// Nil, True and False build the constant literals.
func Nil() *Node   { return &Node{Kind: KindNil} }
func True() *Node  { return &Node{Kind: KindTrue} }
func False() *Node { return &Node{Kind: KindFalse} }

// Number builds a numeric literal from its source text.
func Number(text string) *Node { return &Node{Kind: KindNumber, Literal: text} }

// String builds a string literal from its (unescaped) contents.
func String(text string) *Node { return &Node{Kind: KindString, Literal: text} }

// Vararg builds the "..." expression.
func Vararg() *Node { return &Node{Kind: KindVararg} }

// NameRef builds an identifier reference.
func NameRef(name string) *Node { return &Node{Kind: KindName, Name: name} }

// Unary builds a unary operation: "-", "not", "#", "~".
func Unary(op string, operand *Node) *Node {
	return &Node{Kind: KindUnary, Name: op, Children: []*Node{operand}}
}

// Binary builds a binary operation.
func Binary(op string, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Name: op, Children: []*Node{left, right}}
}

// Member builds obj.field access.
func Member(obj *Node, field string) *Node {
	return &Node{Kind: KindMember, Name: field, Children: []*Node{obj}}
}

// Index builds obj[key] access.
func Index(obj, key *Node) *Node {
	return &Node{Kind: KindIndex, Children: []*Node{obj, key}}
}

// Table builds a table constructor from field nodes.
func Table(fields ...*Node) *Node { return &Node{Kind: KindTable, Children: fields} }

// NamedField builds a {name = value} constructor field.
func NamedField(name string, value *Node) *Node {
	return &Node{Kind: KindKeyedField, Name: name, Children: []*Node{value}}
}

// ExprField builds a {[key] = value} constructor field.
func ExprField(key, value *Node) *Node {
	return &Node{Kind: KindKeyedField, Children: []*Node{key, value}}
}

// Call builds callee(args...).
func Call(callee *Node, args ...*Node) *Node {
	return &Node{Kind: KindCall, Children: append([]*Node{callee}, args...)}
}

// MethodCall builds receiver:method(args...).
func MethodCall(recv *Node, method string, args ...*Node) *Node {
	return &Node{Kind: KindMethodCall, Name: method, Children: append([]*Node{recv}, args...)}
}

// Params builds a parameter list; pass Vararg() last for variadics.
func Params(params ...*Node) *Node { return &Node{Kind: KindParams, Children: params} }

// Function builds a function expression (name "") or declaration.
func Function(name string, params, body *Node) *Node {
	return &Node{Kind: KindFunction, Name: name, Children: []*Node{params, body}}
}

// MethodDecl builds "function recv:name(params) body end".
func MethodDecl(recv *Node, name string, params, body *Node) *Node {
	return &Node{Kind: KindMethodDecl, Name: name, Children: []*Node{recv, params, body}}
}

// Targets and Values wrap the two halves of a declaration or assignment.
func Targets(targets ...*Node) *Node { return &Node{Kind: KindTargets, Children: targets} }
func Values(values ...*Node) *Node   { return &Node{Kind: KindValues, Children: values} }

// Local builds a local declaration statement.
func Local(targets, values *Node) *Node {
	return &Node{Kind: KindLocal, Children: []*Node{targets, values}}
}

// Assign builds an assignment statement.
func Assign(targets, values *Node) *Node {
	return &Node{Kind: KindAssign, Children: []*Node{targets, values}}
}

// If builds a conditional chain from Branch nodes and an optional Else.
func If(branches ...*Node) *Node { return &Node{Kind: KindIf, Children: branches} }

// Branch builds one condition/body pair of an if chain.
func Branch(cond, body *Node) *Node {
	return &Node{Kind: KindBranch, Children: []*Node{cond, body}}
}

// Else builds the final unconditional branch of an if chain.
func Else(body *Node) *Node { return &Node{Kind: KindElse, Children: []*Node{body}} }

// While builds a while loop.
func While(cond, body *Node) *Node {
	return &Node{Kind: KindWhile, Children: []*Node{cond, body}}
}

// Repeat builds a repeat-until loop; cond sees the body's scope.
func Repeat(body, cond *Node) *Node {
	return &Node{Kind: KindRepeat, Children: []*Node{body, cond}}
}

// NumericFor builds "for name = start, limit [, step] do body end".
// Pass step == nil for the implicit step of 1.
func NumericFor(name string, start, limit, step, body *Node) *Node {
	children := []*Node{start, limit}
	if step != nil {
		children = append(children, step)
	}
	children = append(children, body)
	return &Node{Kind: KindNumericFor, Name: name, Children: children}
}

// GenericFor builds "for targets in values do body end".
func GenericFor(targets, values, body *Node) *Node {
	return &Node{Kind: KindGenericFor, Children: []*Node{targets, values, body}}
}

// Break, Label, Goto and Return build the remaining simple statements.
func Break() *Node            { return &Node{Kind: KindBreak} }
func Label(name string) *Node { return &Node{Kind: KindLabel, Name: name} }
func Goto(name string) *Node  { return &Node{Kind: KindGoto, Name: name} }
func Return(values ...*Node) *Node {
	return &Node{Kind: KindReturn, Children: values}
}
