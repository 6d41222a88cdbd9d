package complexity

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/iepathos/debtmap/pkg/config"
	"github.com/iepathos/debtmap/pkg/parser"
)

// AnalyzeEntropy computes the repetition signals for a function body.
func AnalyzeEntropy(body *sitter.Node, src []byte, lang parser.Language) EntropySignals {
	if body == nil {
		return EntropySignals{}
	}
	return EntropySignals{
		TokenEntropy:      tokenEntropy(body, src),
		PatternRepetition: patternRepetition(body, lang),
		BranchSimilarity:  branchSimilarity(body, lang),
	}
}

// Dampening converts entropy signals into a multiplier in [0.5, 1.0]
// applied to cyclomatic complexity before scoring. Repetitive or
// low-entropy code is dampened hardest; EntropyWeight scales how far
// below 1.0 the result can go, with 0 disabling dampening entirely.
func Dampening(sig EntropySignals, t config.ThresholdConfig) float64 {
	mult := 1.0
	if sig.PatternRepetition > t.PatternRepetition {
		mult = math.Min(mult, 0.3)
	}
	if sig.TokenEntropy > 0 && sig.TokenEntropy < t.TokenEntropy {
		mult = math.Min(mult, 0.5)
	}
	if sig.BranchSimilarity > t.BranchSimilarity {
		mult = math.Min(mult, 0.4)
	}

	d := 1.0 - (1.0-mult)*t.EntropyWeight
	if d < 0.5 {
		return 0.5
	}
	if d > 1.0 {
		return 1.0
	}
	return d
}

// tokenEntropy computes normalized Shannon entropy over the leaf token
// stream. A dispatch table full of near-identical lines has few distinct
// tokens and scores low; varied logic scores near 1.
func tokenEntropy(body *sitter.Node, src []byte) float64 {
	freq := make(map[uint64]int)
	total := 0

	parser.Walk(body, func(n *sitter.Node) bool {
		if n.ChildCount() == 0 {
			text := parser.GetNodeText(n, src)
			if text != "" {
				freq[xxhash.Sum64String(text)]++
				total++
			}
		}
		return true
	})

	if total == 0 || len(freq) < 2 {
		return 0
	}

	var entropy float64
	for _, count := range freq {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return entropy / math.Log2(float64(len(freq)))
}

// patternRepetition measures how many statement subtrees repeat a
// structural shape already seen in the same body.
func patternRepetition(body *sitter.Node, lang parser.Language) float64 {
	seen := make(map[uint64]int)
	total := 0

	parser.Walk(body, func(n *sitter.Node) bool {
		if isStatement(n.Type(), lang) {
			seen[structuralHash(n)]++
			total++
		}
		return true
	})

	if total < 2 {
		return 0
	}
	return 1.0 - float64(len(seen))/float64(total)
}

// branchSimilarity measures how many branch bodies are structural
// duplicates of a sibling branch.
func branchSimilarity(body *sitter.Node, lang parser.Language) float64 {
	branchTypes := makeSet(decisionNodeTypes(lang))
	seen := make(map[uint64]int)
	total := 0

	parser.Walk(body, func(n *sitter.Node) bool {
		if !branchTypes[n.Type()] {
			return true
		}
		for _, arm := range branchBodies(n) {
			seen[structuralHash(arm)]++
			total++
		}
		return true
	})

	if total < 2 {
		return 0
	}
	return 1.0 - float64(len(seen))/float64(total)
}

// branchBodies returns the body nodes of each arm of a branching construct.
func branchBodies(n *sitter.Node) []*sitter.Node {
	var arms []*sitter.Node
	for _, field := range []string{"consequence", "alternative", "body"} {
		if c := n.ChildByFieldName(field); c != nil {
			arms = append(arms, c)
		}
	}
	// Switch and match arms are plain children rather than named fields.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "expression_case", "default_case", "case_clause",
			"match_arm", "switch_block_statement_group", "when":
			arms = append(arms, child)
		}
	}
	return arms
}

// structuralHash digests the shape of a subtree: node types and nesting,
// ignoring identifiers and literal values.
func structuralHash(n *sitter.Node) uint64 {
	d := xxhash.New()
	hashInto(d, n, 0)
	return d.Sum64()
}

func hashInto(d *xxhash.Digest, n *sitter.Node, depth int) {
	d.WriteString(strconv.Itoa(depth))
	d.WriteString(n.Type())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		hashInto(d, n.NamedChild(i), depth+1)
	}
}

// isStatement reports whether a node type is a statement-level construct
// worth comparing for repetition.
func isStatement(nodeType string, lang parser.Language) bool {
	switch lang {
	case parser.LangRuby:
		switch nodeType {
		case "assignment", "operator_assignment", "call", "method":
			return true
		}
		return false
	default:
		if len(nodeType) > 10 && nodeType[len(nodeType)-10:] == "_statement" {
			return true
		}
		switch nodeType {
		case "short_var_declaration", "let_declaration", "lexical_declaration",
			"local_variable_declaration", "assignment", "augmented_assignment",
			"call_expression", "macro_invocation":
			return true
		}
		return false
	}
}
