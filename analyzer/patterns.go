package analyzer

import (
	"regexp"
	"strings"

	"github.com/aMonteSl/codexr-mcp/model"
)

// blockStyle tells how the end of a function body is found.
type blockStyle int

const (
	blockBraces blockStyle = iota // body ends where its braces balance
	blockIndent                   // body ends at the first line indented no deeper than the header
	blockNext                     // body runs until the next declaration
)

// languagePatterns is a declaration-level approximation of a language's
// grammar. Function patterns capture the name in group 1 and the parameter
// list, when present, in group 2.
type languagePatterns struct {
	functions []*regexp.Regexp
	classes   []*regexp.Regexp
	decisions *regexp.Regexp
	style     blockStyle
}

var (
	cDecisions      = regexp.MustCompile(`\b(?:if|for|while|case|catch|foreach)\b|&&|\|\|`)
	pythonDecisions = regexp.MustCompile(`\b(?:if|elif|for|while|except|case|and|or)\b`)

	cLikeFunction = regexp.MustCompile(`^\s*(?:[\w<>\[\],.?*&:]+\s+)+\**&?([A-Za-z_]\w*(?:::~?\w+)?)\s*\(([^;{}]*)\)\s*(?:const\s*)?(?:noexcept\s*)?(?:throws\s+[\w., ]+)?\s*\{?\s*$`)
	cLikeClass    = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|abstract|final|static|sealed|partial|export|default|template\s*<[^>]*>)\s+)*(?:class|interface|enum|record|struct)\s+\w+`)
	jsFunction    = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)`)
	jsArrow       = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*(?::[^=]+)?=\s*(?:async\s+)?\(([^)]*)\)\s*(?::\s*[^=]+)?=>`)
	jsMethod      = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|async|readonly|override|get|set)\s+)*([A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\(([^)]*)\)\s*(?::\s*[^{]+)?\{\s*$`)
	jsClass       = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+\w+`)
)

var patternsByLanguage = map[string]languagePatterns{
	"C":           {functions: []*regexp.Regexp{cLikeFunction}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:typedef\s+)?struct\s+\w+\s*\{`)}, decisions: cDecisions},
	"C++":         {functions: []*regexp.Regexp{cLikeFunction}, classes: []*regexp.Regexp{cLikeClass}, decisions: cDecisions},
	"C#":          {functions: []*regexp.Regexp{cLikeFunction}, classes: []*regexp.Regexp{cLikeClass}, decisions: cDecisions},
	"Java":        {functions: []*regexp.Regexp{cLikeFunction}, classes: []*regexp.Regexp{cLikeClass}, decisions: cDecisions},
	"Objective-C": {functions: []*regexp.Regexp{cLikeFunction, regexp.MustCompile(`^\s*[-+]\s*\([^)]*\)\s*(\w+)()`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*@(?:interface|implementation|protocol)\s+\w+`)}, decisions: cDecisions},
	"JavaScript":  {functions: []*regexp.Regexp{jsFunction, jsArrow, jsMethod}, classes: []*regexp.Regexp{jsClass}, decisions: cDecisions},
	"TypeScript":  {functions: []*regexp.Regexp{jsFunction, jsArrow, jsMethod}, classes: []*regexp.Regexp{jsClass, regexp.MustCompile(`^\s*(?:export\s+)?interface\s+\w+`)}, decisions: cDecisions},
	"Vue":         {functions: []*regexp.Regexp{jsFunction, jsArrow, jsMethod}, classes: []*regexp.Regexp{jsClass}, decisions: cDecisions},
	"Kotlin":      {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:\w+\s+)*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?(\w+)\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:\w+\s+)*(?:class|interface|object)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|for|while|catch)\b|->|&&|\|\|`)},
	"Scala":       {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:\w+\s+)*def\s+(\w+)\s*(?:\[[^\]]*\])?\s*(?:\(([^)]*)\))?`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:\w+\s+)*(?:class|trait|object)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|for|while|case|catch)\b|&&|\|\|`)},
	"Swift":       {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:\w+\s+)*func\s+(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:\w+\s+)*(?:class|struct|protocol|enum|actor)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|guard|for|while|case|catch)\b|&&|\|\|`)},
	"Rust":        {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|union)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|for|while|loop|match)\b|=>|&&|\|\||\?`)},
	"PHP":         {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|abstract|final)\s+)*function\s+&?(\w+)\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:(?:abstract|final|readonly)\s+)*(?:class|interface|trait|enum)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|elseif|for|foreach|while|case|catch)\b|&&|\|\||\band\b|\bor\b`)},
	"Solidity":    {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:function|modifier)\s+(\w+)\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:abstract\s+)?(?:contract|interface|library|struct)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|for|while|require)\b|&&|\|\|`)},
	"Zig":         {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:pub\s+)?(?:export\s+)?(?:inline\s+)?fn\s+(\w+)\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:pub\s+)?const\s+\w+\s*=\s*(?:packed\s+|extern\s+)?(?:struct|enum|union)\b`)}, decisions: regexp.MustCompile(`\b(?:if|for|while|switch|catch|orelse|and|or)\b`)},
	"Perl":        {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*sub\s+(\w+)()`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*package\s+[\w:]+`)}, decisions: regexp.MustCompile(`\b(?:if|elsif|unless|while|until|for|foreach)\b|&&|\|\|`)},
	"Python":      {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(([^)]*)\)?`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*class\s+\w+`)}, decisions: pythonDecisions, style: blockIndent},
	"GDScript":    {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:static\s+)?func\s+(\w+)\s*\(([^)]*)\)`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*class(?:_name)?\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|elif|for|while|match|and|or)\b`), style: blockIndent},
	"Ruby":        {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*def\s+(?:self\.)?(\w+[?!=]?)\s*(?:\(([^)]*)\))?`)}, classes: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:class|module)\s+\w+`)}, decisions: regexp.MustCompile(`\b(?:if|elsif|unless|while|until|for|when|rescue)\b|&&|\|\|`), style: blockNext},
	"Lua":         {functions: []*regexp.Regexp{regexp.MustCompile(`^\s*(?:local\s+)?function\s+([\w.:]+)\s*\(([^)]*)\)`), regexp.MustCompile(`^\s*(?:local\s+)?([\w.]+)\s*=\s*function\s*\(([^)]*)\)`)}, decisions: regexp.MustCompile(`\b(?:if|elseif|for|while|repeat|and|or)\b`), style: blockNext},
	"Erlang":      {functions: []*regexp.Regexp{regexp.MustCompile(`^([a-z]\w*)\s*\(([^)]*)\)\s*(?:when\s+.*)?->`)}, decisions: regexp.MustCompile(`\b(?:case|if|receive|catch|when)\b|->`), style: blockNext},
	"Fortran":     {functions: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*(?:(?:pure|elemental|recursive|integer|real|logical|character|double\s+precision|complex)\s+)*(?:function|subroutine)\s+(\w+)\s*(?:\(([^)]*)\))?`)}, classes: []*regexp.Regexp{regexp.MustCompile(`(?i)^\s*(?:module|type)\s+(?:::\s*)?\w+\s*$`)}, decisions: regexp.MustCompile(`(?i)\b(?:if|do|case|while)\b|\.and\.|\.or\.`), style: blockNext},
}

var controlKeywords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {}, "return": {}, "else": {},
	"sizeof": {}, "new": {}, "delete": {}, "foreach": {}, "using": {}, "lock": {},
	"synchronized": {}, "function": {}, "do": {}, "with": {}, "typeof": {}, "await": {},
}

var selfParameters = map[string]struct{}{
	"self": {}, "cls": {}, "&self": {}, "&mut self": {}, "mut self": {}, "this": {},
}

// matchFunctions finds function declarations in lines using the language's
// patterns. Only code lines are considered.
func matchFunctions(lines []string, kinds []lineKind, patterns languagePatterns) []model.FunctionMetrics {
	type header struct {
		line   int // zero-based
		name   string
		params int
	}
	var headers []header
	for i, line := range lines {
		if kinds[i] != lineCode {
			continue
		}
		for _, re := range patterns.functions {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			if _, isKeyword := controlKeywords[name]; isKeyword {
				continue
			}
			params := ""
			if len(m) > 2 {
				params = m[2]
			}
			headers = append(headers, header{line: i, name: name, params: countParameterList(params)})
			break
		}
	}

	functions := make([]model.FunctionMetrics, 0, len(headers))
	for i, h := range headers {
		next := len(lines)
		if i+1 < len(headers) {
			next = headers[i+1].line
		}
		end := functionEnd(lines, kinds, h.line, next, patterns.style)
		functions = append(functions, model.FunctionMetrics{
			Name:       h.name,
			StartLine:  h.line + 1,
			EndLine:    end + 1,
			LineCount:  end - h.line + 1,
			Complexity: 1 + countDecisions(lines[h.line:end+1], kinds[h.line:end+1], patterns.decisions),
			Parameters: h.params,
		})
	}
	return functions
}

// functionEnd returns the zero-based last line of the function starting at start.
func functionEnd(lines []string, kinds []lineKind, start, next int, style blockStyle) int {
	last := next - 1
	if last < start {
		last = start
	}
	switch style {
	case blockBraces:
		depth, opened := 0, false
		for i := start; i < len(lines); i++ {
			if kinds[i] != lineCode {
				continue
			}
			for _, r := range lines[i] {
				switch r {
				case '{':
					depth++
					opened = true
				case '}':
					depth--
				}
			}
			if opened && depth <= 0 {
				return i
			}
			// Declarations without a body on the header or the next line.
			if !opened && i > start+1 {
				return start
			}
		}
		return last
	case blockIndent:
		indent := indentation(lines[start])
		end := start
		for i := start + 1; i < len(lines); i++ {
			if kinds[i] == lineBlank {
				continue
			}
			if indentation(lines[i]) <= indent {
				break
			}
			end = i
		}
		return end
	default:
		for last > start && kinds[last] == lineBlank {
			last--
		}
		return last
	}
}

func indentation(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func countDecisions(lines []string, kinds []lineKind, decisions *regexp.Regexp) int {
	if decisions == nil {
		return 0
	}
	count := 0
	for i, line := range lines {
		if kinds[i] == lineCode {
			count += len(decisions.FindAllStringIndex(line, -1))
		}
	}
	return count
}

// countParameterList counts the top-level entries of a parameter list,
// ignoring receivers such as self and this.
func countParameterList(params string) int {
	params = strings.TrimSpace(params)
	if params == "" || params == "void" {
		return 0
	}
	count, depth := 0, 0
	current := strings.Builder{}
	flush := func() {
		p := strings.TrimSpace(current.String())
		current.Reset()
		if p == "" {
			return
		}
		name := strings.TrimSpace(strings.SplitN(p, ":", 2)[0])
		if _, isSelf := selfParameters[name]; isSelf {
			return
		}
		count++
	}
	for _, r := range params {
		switch r {
		case '(', '<', '[', '{':
			depth++
		case ')', '>', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				flush()
				continue
			}
		}
		current.WriteRune(r)
	}
	flush()
	return count
}

func countClasses(lines []string, kinds []lineKind, patterns languagePatterns) int {
	count := 0
	for i, line := range lines {
		if kinds[i] != lineCode {
			continue
		}
		for _, re := range patterns.classes {
			if re.MatchString(line) {
				count++
				break
			}
		}
	}
	return count
}
