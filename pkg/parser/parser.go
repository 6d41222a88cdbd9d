// Package parser wraps tree-sitter for multi-language source parsing.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a supported source language.
type Language string

const (
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangTSX        Language = "tsx"
	LangJava       Language = "java"
	LangRuby       Language = "ruby"
	LangUnknown    Language = "unknown"
)

// Parser parses source files into syntax trees. A Parser is not safe for
// concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult holds a parsed syntax tree along with the source it came from.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a parser.
func New() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// ParseFile reads and parses the file at path, detecting the language from
// its extension.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Parse(ctx, path, src)
}

// Parse parses src as the language detected from path.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*ParseResult, error) {
	lang := DetectLanguage(path)
	tsLang := GetTreeSitterLanguage(lang)
	if tsLang == nil {
		return nil, fmt.Errorf("unsupported language for %s", path)
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   src,
		Path:     path,
	}, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// Close releases the parse tree.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
	}
}

// GetTreeSitterLanguage returns the tree-sitter grammar for lang, or nil if
// the language is not supported.
func GetTreeSitterLanguage(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangJava:
		return java.GetLanguage()
	case LangRuby:
		return ruby.GetLanguage()
	default:
		return nil
	}
}

// DetectLanguage infers the language from a file path.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	case ".py", ".pyi":
		return LangPython
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript
	case ".tsx":
		return LangTSX
	case ".java":
		return LangJava
	case ".rb", ".rake":
		return LangRuby
	default:
		return LangUnknown
	}
}

// IsSupported reports whether path maps to a parseable language.
func IsSupported(path string) bool {
	return DetectLanguage(path) != LangUnknown
}

// NodeVisitor is called for each node during a tree walk. Returning false
// skips the node's children.
type NodeVisitor func(node *sitter.Node) bool

// Walk traverses the tree in depth-first order.
func Walk(node *sitter.Node, visit NodeVisitor) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), visit)
	}
}

// FindNodes returns all nodes in the tree matching the predicate.
func FindNodes(root *sitter.Node, pred func(*sitter.Node) bool) []*sitter.Node {
	var found []*sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if pred(n) {
			found = append(found, n)
		}
		return true
	})
	return found
}

// FindNodesByType returns all nodes whose type is one of the given types.
func FindNodesByType(root *sitter.Node, types ...string) []*sitter.Node {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return FindNodes(root, func(n *sitter.Node) bool {
		_, ok := set[n.Type()]
		return ok
	})
}

// GetNodeText returns the source text covered by node.
func GetNodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}
