// =============================================================================
// Catalog to Dolibarr Converter - Reference Text Operations
// =============================================================================
//
// Bulk edits applied to product references, either inside a conversion (the
// reference column of every output row) or by the standalone ref editor.
//
// OPERATIONS:
//
//   | Kind           | Operands               | Effect on "OLD-A-1"               |
//   |----------------|------------------------|-----------------------------------|
//   | add-prefix     | prefix                 | "PFX-" + ref                      |
//   | add-suffix     | suffix                 | ref + "-V2"                       |
//   | remove-prefix  | prefix                 | "A-1" when prefix is "OLD-"       |
//   | remove-suffix  | suffix                 | "OLD-A" when suffix is "-1"       |
//   | find-replace   | search, replace        | every occurrence, literal         |
//   | regex-replace  | pattern, flags, replace| every match, $1 / $& references   |
//
// Regex flags follow the browser convention: "i" (case-insensitive), "m"
// (multi-line anchors), "s" (dot matches newline) and "u" (accepted, Go
// patterns are always Unicode-aware). Matching is always global.
//
// =============================================================================

package refops

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// OperationKind is the wire name of a text operation.
type OperationKind string

const (
	KindAddPrefix    OperationKind = "add-prefix"
	KindAddSuffix    OperationKind = "add-suffix"
	KindRemovePrefix OperationKind = "remove-prefix"
	KindRemoveSuffix OperationKind = "remove-suffix"
	KindFindReplace  OperationKind = "find-replace"
	KindRegexReplace OperationKind = "regex-replace"
)

// Kinds lists every operation kind, in display order.
var Kinds = []OperationKind{
	KindAddPrefix,
	KindAddSuffix,
	KindRemovePrefix,
	KindRemoveSuffix,
	KindFindReplace,
	KindRegexReplace,
}

// ParseKind validates an operation kind name.
func ParseKind(s string) (OperationKind, error) {
	kind := OperationKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown ref operation %q", s)
}

// =============================================================================
// OPERATION TYPES
// =============================================================================

// Operation is a bulk reference edit. The set of implementations is closed:
// AddPrefix, AddSuffix, RemovePrefix, RemoveSuffix, FindReplace and
// RegexReplace.
type Operation interface {
	Kind() OperationKind
	isRefOperation()
}

// AddPrefix prepends Prefix unconditionally.
type AddPrefix struct{ Prefix string }

// AddSuffix appends Suffix unconditionally.
type AddSuffix struct{ Suffix string }

// RemovePrefix strips Prefix when the reference starts with it (case-sensitive).
type RemovePrefix struct{ Prefix string }

// RemoveSuffix strips Suffix when the reference ends with it (case-sensitive).
type RemoveSuffix struct{ Suffix string }

// FindReplace replaces every literal occurrence of Search.
type FindReplace struct {
	Search  string
	Replace string
}

// RegexReplace replaces every match of Pattern. Use NewRegexReplace to get a
// value with a compiled pattern.
type RegexReplace struct {
	Pattern string
	Flags   string
	Replace string

	re *regexp.Regexp
}

func (AddPrefix) Kind() OperationKind    { return KindAddPrefix }
func (AddSuffix) Kind() OperationKind    { return KindAddSuffix }
func (RemovePrefix) Kind() OperationKind { return KindRemovePrefix }
func (RemoveSuffix) Kind() OperationKind { return KindRemoveSuffix }
func (FindReplace) Kind() OperationKind  { return KindFindReplace }
func (RegexReplace) Kind() OperationKind { return KindRegexReplace }

func (AddPrefix) isRefOperation()    {}
func (AddSuffix) isRefOperation()    {}
func (RemovePrefix) isRefOperation() {}
func (RemoveSuffix) isRefOperation() {}
func (FindReplace) isRefOperation()  {}
func (RegexReplace) isRefOperation() {}

// ErrInvalidFlags is returned for regex flags outside "imsu" or repeated flags.
var ErrInvalidFlags = errors.New("invalid regular expression flags")

// NewRegexReplace compiles pattern with the given browser-style flags.
func NewRegexReplace(pattern, flags, replace string) (RegexReplace, error) {
	re, err := compile(pattern, flags)
	if err != nil {
		return RegexReplace{}, err
	}
	return RegexReplace{Pattern: pattern, Flags: flags, Replace: replace, re: re}, nil
}

// compile turns browser-style flags into Go inline flags.
func compile(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	seen := make(map[rune]bool, len(flags))
	for _, f := range flags {
		if seen[f] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFlags, flags)
		}
		seen[f] = true

		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		case 'u':
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidFlags, flags)
		}
	}

	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// =============================================================================
// APPLICATION
// =============================================================================

// Apply runs op on a single reference.
func Apply(ref string, op Operation) string {
	switch o := op.(type) {
	case AddPrefix:
		return o.Prefix + ref
	case AddSuffix:
		return ref + o.Suffix
	case RemovePrefix:
		return strings.TrimPrefix(ref, o.Prefix)
	case RemoveSuffix:
		// An empty suffix removes nothing.
		return strings.TrimSuffix(ref, o.Suffix)
	case FindReplace:
		return strings.ReplaceAll(ref, o.Search, o.Replace)
	case RegexReplace:
		re := o.re
		if re == nil {
			compiled, err := compile(o.Pattern, o.Flags)
			if err != nil {
				return ref
			}
			re = compiled
		}
		return replaceAll(re, ref, o.Replace)
	default:
		panic(fmt.Sprintf("refops: unhandled operation %T", op))
	}
}

// replaceAll substitutes every match of re in src, expanding the replacement
// with browser semantics: $$, $&, $`, $', $1..$99 and $<name>.
func replaceAll(re *regexp.Regexp, src, repl string) string {
	matches := re.FindAllStringSubmatchIndex(src, -1)
	if matches == nil {
		return src
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(src[last:m[0]])
		expand(&b, re, repl, src, m)
		last = m[1]
	}
	b.WriteString(src[last:])
	return b.String()
}

func expand(b *strings.Builder, re *regexp.Regexp, tmpl, src string, m []int) {
	groups := re.NumSubexp()

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i+1 >= len(tmpl) {
			b.WriteByte(c)
			continue
		}

		switch next := tmpl[i+1]; {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(src[m[0]:m[1]])
			i++
		case next == '`':
			b.WriteString(src[:m[0]])
			i++
		case next == '\'':
			b.WriteString(src[m[1]:])
			i++
		case isDigit(next):
			n, width := groupReference(tmpl[i+1:], groups)
			if width == 0 {
				b.WriteByte('$')
				continue
			}
			b.WriteString(submatch(src, m, n))
			i += width
		case next == '<':
			end := strings.IndexByte(tmpl[i+2:], '>')
			if end < 0 || !hasNamedGroups(re) {
				b.WriteByte('$')
				continue
			}
			if idx := re.SubexpIndex(tmpl[i+2 : i+2+end]); idx >= 0 {
				b.WriteString(submatch(src, m, idx))
			}
			i += 2 + end
		default:
			b.WriteByte('$')
		}
	}
}

// groupReference reads a one- or two-digit group number. Two digits win when
// that group exists. It returns a zero width when no valid group is named.
func groupReference(s string, groups int) (n, width int) {
	if len(s) >= 2 && isDigit(s[1]) {
		if two := int(s[0]-'0')*10 + int(s[1]-'0'); two >= 1 && two <= groups {
			return two, 2
		}
	}
	if one := int(s[0] - '0'); one >= 1 && one <= groups {
		return one, 1
	}
	return 0, 0
}

func submatch(src string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return src[m[2*n]:m[2*n+1]]
}

func hasNamedGroups(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames() {
		if name != "" {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// =============================================================================
// BUILDING AND BULK APPLICATION
// =============================================================================

// BuildOperation assembles an operation from user input.
//
// PARAMETERS:
//   - kind: The operation kind.
//   - a: Prefix, suffix, search text or pattern.
//   - b: Replacement (find-replace and regex-replace only).
//   - flags: Regex flags (regex-replace only).
//
// RETURNS:
//   - nil when a is empty, the pattern or flags are invalid, or kind is
//     unknown. A nil operation means "not configured yet", never an error.
func BuildOperation(kind OperationKind, a, b, flags string) Operation {
	if a == "" {
		return nil
	}

	switch kind {
	case KindAddPrefix:
		return AddPrefix{Prefix: a}
	case KindAddSuffix:
		return AddSuffix{Suffix: a}
	case KindRemovePrefix:
		return RemovePrefix{Prefix: a}
	case KindRemoveSuffix:
		return RemoveSuffix{Suffix: a}
	case KindFindReplace:
		return FindReplace{Search: a, Replace: b}
	case KindRegexReplace:
		op, err := NewRegexReplace(a, flags, b)
		if err != nil {
			return nil
		}
		return op
	default:
		return nil
	}
}

// Modification is the outcome of an operation on one reference.
type Modification struct {
	Original string
	Modified string
	Changed  bool
}

// ApplyToRefs runs op on every reference, in order.
func ApplyToRefs(refs []string, op Operation) []Modification {
	out := make([]Modification, len(refs))
	for i, ref := range refs {
		modified := Apply(ref, op)
		out[i] = Modification{Original: ref, Modified: modified, Changed: modified != ref}
	}
	return out
}

// CountChanged returns how many references were actually modified.
func CountChanged(mods []Modification) int {
	n := 0
	for _, m := range mods {
		if m.Changed {
			n++
		}
	}
	return n
}
