// Package extraction finds canonical skill names in free text by whole-phrase,
// case-insensitive matching of each skill's name and aliases.
package extraction

import (
	"sort"
	"strings"
	"unicode"
)

// Dictionary maps a canonical skill name to its aliases.
type Dictionary map[string][]string

// Collision records a surface form claimed by more than one skill. Owner keeps
// the form; Dropped lost it.
type Collision struct {
	Form    string
	Owner   string
	Dropped string
}

// Extractor is an immutable phrase automaton: a trie keyed by tokens. It is
// safe for concurrent use and is rebuilt, never updated, when the dictionary
// changes.
type Extractor struct {
	root       *node
	patterns   int
	collisions []Collision
}

type node struct {
	next  map[string]*node
	owner string
}

// New builds an extractor. Skills are registered in name order so that the
// owner of a colliding surface form is deterministic.
func New(dict Dictionary) *Extractor {
	e := &Extractor{root: &node{}}

	names := make([]string, 0, len(dict))
	for name := range dict {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		forms := append([]string{name}, dict[name]...)
		for _, form := range forms {
			toks := Tokenize(form)
			if len(toks) == 0 {
				continue
			}
			e.insert(name, form, toks)
		}
	}
	return e
}

// Extract is New(dict).Extract(text).
func Extract(text string, dict Dictionary) []string {
	return New(dict).Extract(text)
}

func (e *Extractor) insert(owner, form string, toks []string) {
	n := e.root
	for _, t := range toks {
		if n.next == nil {
			n.next = map[string]*node{}
		}
		child, ok := n.next[t]
		if !ok {
			child = &node{}
			n.next[t] = child
		}
		n = child
	}

	switch {
	case n.owner == "":
		n.owner = owner
		e.patterns++
	case n.owner != owner:
		e.collisions = append(e.collisions, Collision{Form: form, Owner: n.owner, Dropped: owner})
	}
}

// Extract returns the sorted, deduplicated canonical names mentioned in text.
// Overlapping phrases are all reported.
func (e *Extractor) Extract(text string) []string {
	if e == nil || e.patterns == 0 {
		return []string{}
	}

	toks := Tokenize(text)
	found := map[string]struct{}{}
	for i := range toks {
		n := e.root
		for j := i; j < len(toks); j++ {
			n = n.next[toks[j]]
			if n == nil {
				break
			}
			if n.owner != "" {
				found[n.owner] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(found))
	for name := range found {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Patterns is the number of distinct surface forms in the automaton.
func (e *Extractor) Patterns() int {
	if e == nil {
		return 0
	}
	return e.patterns
}

func (e *Extractor) Collisions() []Collision {
	if e == nil {
		return nil
	}
	return append([]Collision(nil), e.collisions...)
}

// Tokenize lowercases s and splits it into tokens made of letters, digits and
// the characters "+#._", so that "C++", "C#" and "Node.js" stay whole.
// Trailing dots are dropped, which lets sentence-final mentions match.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isTokenRune(r)
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isTokenRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '+', '#', '.', '_':
		return true
	}
	return false
}
