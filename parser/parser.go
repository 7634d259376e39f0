// Package parser implements a hand-written recursive-descent parser
// over mpst/lexer's token stream, producing the ast.Module tree spec.md
// §3 assumes as its starting point. spec.md itself places the concrete
// syntax out of scope ("the design assumes an AST with the shape given
// in §3"); SPEC_FULL.md §B.4 supplements it with the grammar in §6.1 so
// the CLI has something to parse. Standard library only, grounded on
// the observation that no retrieved example repo uses a parser
// generator or combinator library for anything (see DESIGN.md).
package parser

import (
	"fmt"

	"github.com/scribble-mpst/mpst-core/ast"
	"github.com/scribble-mpst/mpst-core/lexer"
	"github.com/scribble-mpst/mpst-core/mpsterr"
)

// ParseError is the fatal stage-boundary error spec.md §7 reserves for
// the parsing stage: no AST is produced when one occurs.
type ParseError struct {
	Loc     mpsterr.Location
	Message string
}

func (e *ParseError) Error() string {
	if loc := e.Loc.String(); loc != "" {
		return fmt.Sprintf("%s: %s", loc, e.Message)
	}
	return e.Message
}

// Parse tokenizes and parses an entire source file into a Module.
func Parse(file, src string) (*ast.Module, error) {
	p := &parser{lex: lexer.New(file, src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	mod := &ast.Module{}
	for p.cur.Kind != lexer.TokenEOF {
		proto, err := p.parseProtocol()
		if err != nil {
			return nil, err
		}
		mod.Protocols = append(mod.Protocols, proto)
	}
	return mod, nil
}

type parser struct {
	lex *lexer.Lexer
	cur lexer.Token
}

func (p *parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Loc: p.cur.Loc, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectKeyword(kw string) error {
	if p.cur.Kind != lexer.TokenKeyword || p.cur.Text != kw {
		return p.errorf("expected keyword %q, got %s %q", kw, p.cur.Kind, p.cur.Text)
	}
	return p.advance()
}

func (p *parser) expect(kind lexer.TokenKind) (lexer.Token, error) {
	if p.cur.Kind != kind {
		return lexer.Token{}, p.errorf("expected %s, got %s %q", kind, p.cur.Kind, p.cur.Text)
	}
	tok := p.cur
	return tok, p.advance()
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur.Kind == lexer.TokenKeyword && p.cur.Text == kw
}

// parseProtocol parses `[global|local] protocol Name ( role R, … ) { Body }`.
// Local protocols accept the same shape plus `at R`; the project's own
// code only ever generates global protocols, but the grammar still
// accepts local declarations as input (spec.md §6.1).
func (p *parser) parseProtocol() (*ast.GlobalProtocol, error) {
	if p.isKeyword("global") || p.isKeyword("local") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	loc := p.cur.Loc
	if err := p.expectKeyword("protocol"); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}

	if p.isKeyword("at") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenIdent); err != nil {
			return nil, err
		}
	}

	roles, params, err := p.parseRoleParamList()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	body, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}

	return &ast.GlobalProtocol{Name: name.Text, Roles: roles, Parameters: params, Body: body, Loc: loc}, nil
}

// parseRoleParamList parses `( role R1, role R2, … )`, returning the
// declared roles. Bare (non-role) parameter identifiers are collected
// as protocol Parameters (spec.md §3's "optional protocol-level
// parameters").
func (p *parser) parseRoleParamList() ([]ast.Role, []string, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, nil, err
	}
	var roles []ast.Role
	var params []string
	for p.cur.Kind != lexer.TokenRParen {
		if p.isKeyword("role") {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			name, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, nil, err
			}
			roles = append(roles, ast.Role(name.Text))
		} else {
			name, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, nil, err
			}
			params = append(params, name.Text)
		}
		if p.cur.Kind == lexer.TokenComma {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, nil, err
	}
	return roles, params, nil
}

// parseSeq parses a sequence of interactions until a closing brace,
// `or`, or `and` keyword ends the current block.
func (p *parser) parseSeq() (*ast.Interaction, error) {
	var body *ast.Interaction
	for !p.atBlockEnd() {
		n, err := p.parseInteraction()
		if err != nil {
			return nil, err
		}
		body = ast.Seq(body, n)
	}
	if body == nil {
		return ast.Empty(), nil
	}
	return body, nil
}

func (p *parser) atBlockEnd() bool {
	if p.cur.Kind == lexer.TokenRBrace || p.cur.Kind == lexer.TokenEOF {
		return true
	}
	return p.isKeyword("or") || p.isKeyword("and")
}

// parseInteraction dispatches on the leading token to one production of
// spec.md §6.1's interaction grammar.
func (p *parser) parseInteraction() (*ast.Interaction, error) {
	switch {
	case p.isKeyword("choice"):
		return p.parseChoice()
	case p.isKeyword("par"):
		return p.parseParallel()
	case p.isKeyword("rec"):
		return p.parseRecursion()
	case p.isKeyword("continue"):
		return p.parseContinue()
	case p.isKeyword("do"):
		return p.parseDo()
	case p.cur.Kind == lexer.TokenIdent:
		return p.parseMessageTransfer()
	default:
		return nil, p.errorf("unexpected token %s %q starting an interaction", p.cur.Kind, p.cur.Text)
	}
}

// parseMessageTransfer parses either the arrow form
// `S -> R[, R2...] : Label(Type...);` or the from/to form
// `Label(Type...) from S to R[, R2...];`.
func (p *parser) parseMessageTransfer() (*ast.Interaction, error) {
	loc := p.cur.Loc
	first, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}

	if p.cur.Kind == lexer.TokenArrow {
		return p.parseArrowForm(first, loc)
	}
	return p.parseFromToForm(first, loc)
}

func (p *parser) parseArrowForm(sender lexer.Token, loc mpsterr.Location) (*ast.Interaction, error) {
	if err := p.advance(); err != nil { // consume '->'
		return nil, err
	}
	receivers, err := p.parseRoleListUntil(lexer.TokenColon)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenColon); err != nil {
		return nil, err
	}
	msg, err := p.parseMessageSignature()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Interaction{
		Kind: ast.KindMessageTransfer, Loc: loc,
		Sender: ast.Role(sender.Text), Receivers: receivers, Message: msg,
	}, nil
}

func (p *parser) parseFromToForm(labelTok lexer.Token, loc mpsterr.Location) (*ast.Interaction, error) {
	msg, err := p.parseMessageSignatureFromLabel(labelTok)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	sender, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	receivers, err := p.parseRoleListUntil(lexer.TokenSemicolon)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Interaction{
		Kind: ast.KindMessageTransfer, Loc: loc,
		Sender: ast.Role(sender.Text), Receivers: receivers, Message: msg,
	}, nil
}

func (p *parser) parseRoleListUntil(stop lexer.TokenKind) ([]ast.Role, error) {
	var roles []ast.Role
	for {
		tok, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		roles = append(roles, ast.Role(tok.Text))
		if p.cur.Kind == lexer.TokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.cur.Kind != stop {
		return nil, p.errorf("expected %s after role list, got %s %q", stop, p.cur.Kind, p.cur.Text)
	}
	return roles, nil
}

// parseMessageSignature parses `Label(Type, Type<Arg>, …)` for the
// arrow form, where Label has already been confirmed absent (it comes
// after the colon).
func (p *parser) parseMessageSignature() (ast.MessageSignature, error) {
	label, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return ast.MessageSignature{}, err
	}
	return p.parseMessageSignatureFromLabel(label)
}

func (p *parser) parseMessageSignatureFromLabel(label lexer.Token) (ast.MessageSignature, error) {
	types, err := p.parsePayloadTypes()
	if err != nil {
		return ast.MessageSignature{}, err
	}
	return ast.MessageSignature{Label: label.Text, PayloadTypes: types, Loc: label.Loc}, nil
}

func (p *parser) parsePayloadTypes() ([]string, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var types []string
	for p.cur.Kind != lexer.TokenRParen {
		name, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		text := name.Text
		if p.cur.Kind == lexer.TokenLAngle {
			args, err := p.parseTypeArgs()
			if err != nil {
				return nil, err
			}
			text = text + "<" + args + ">"
		}
		types = append(types, text)
		if p.cur.Kind == lexer.TokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return types, nil
}

func (p *parser) parseTypeArgs() (string, error) {
	if _, err := p.expect(lexer.TokenLAngle); err != nil {
		return "", err
	}
	var args []string
	for p.cur.Kind != lexer.TokenRAngle {
		name, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return "", err
		}
		args = append(args, name.Text)
		if p.cur.Kind == lexer.TokenComma {
			if err := p.advance(); err != nil {
				return "", err
			}
		}
	}
	if _, err := p.expect(lexer.TokenRAngle); err != nil {
		return "", err
	}
	joined := ""
	for i, a := range args {
		if i > 0 {
			joined += ","
		}
		joined += a
	}
	return joined, nil
}

// parseChoice parses `choice at R { Body } [ or { Body } ]+`.
func (p *parser) parseChoice() (*ast.Interaction, error) {
	loc := p.cur.Loc
	if err := p.expectKeyword("choice"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("at"); err != nil {
		return nil, err
	}
	decider, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	branches, err := p.parseBranchList("or")
	if err != nil {
		return nil, err
	}
	return &ast.Interaction{Kind: ast.KindChoice, Loc: loc, Decider: ast.Role(decider.Text), Branches: branches}, nil
}

// parseParallel parses `par { Body } [ and { Body } ]+`.
func (p *parser) parseParallel() (*ast.Interaction, error) {
	loc := p.cur.Loc
	if err := p.expectKeyword("par"); err != nil {
		return nil, err
	}
	branches, err := p.parseBranchList("and")
	if err != nil {
		return nil, err
	}
	return &ast.Interaction{Kind: ast.KindParallel, Loc: loc, Branches: branches}, nil
}

func (p *parser) parseBranchList(connector string) ([]*ast.Interaction, error) {
	var branches []*ast.Interaction
	first, err := p.parseBracedSeq()
	if err != nil {
		return nil, err
	}
	branches = append(branches, first)
	for p.isKeyword(connector) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseBracedSeq()
		if err != nil {
			return nil, err
		}
		branches = append(branches, next)
	}
	return branches, nil
}

func (p *parser) parseBracedSeq() (*ast.Interaction, error) {
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	body, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return body, nil
}

// parseRecursion parses `rec Label { Body }`.
func (p *parser) parseRecursion() (*ast.Interaction, error) {
	loc := p.cur.Loc
	if err := p.expectKeyword("rec"); err != nil {
		return nil, err
	}
	label, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBracedSeq()
	if err != nil {
		return nil, err
	}
	return &ast.Interaction{Kind: ast.KindRecursion, Loc: loc, Label: label.Text, Body: body}, nil
}

// parseContinue parses `continue Label;`.
func (p *parser) parseContinue() (*ast.Interaction, error) {
	loc := p.cur.Loc
	if err := p.expectKeyword("continue"); err != nil {
		return nil, err
	}
	label, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Interaction{Kind: ast.KindContinue, Loc: loc, Label: label.Text}, nil
}

// parseDo parses `do ProtocolName(Role, Role, …);`.
func (p *parser) parseDo() (*ast.Interaction, error) {
	loc := p.cur.Loc
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var roleArgs []ast.Role
	for p.cur.Kind != lexer.TokenRParen {
		r, err := p.expect(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}
		roleArgs = append(roleArgs, ast.Role(r.Text))
		if p.cur.Kind == lexer.TokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Interaction{Kind: ast.KindDo, Loc: loc, ProtocolName: name.Text, RoleArgs: roleArgs}, nil
}
