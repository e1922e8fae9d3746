package internal

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/PaesslerAG/jsonpath"
)

// Rule routes events matching a boolean expression to one or more publish
// topics, optionally restricted to specific publisher drivers.
type Rule struct {
	When    string   `yaml:"when"`
	Emit    EmitList `yaml:"emit"`
	Drivers []string `yaml:"drivers"`
}

// EmitList accepts either a single topic or a list of topics in YAML.
type EmitList []string

func (e *EmitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*e = EmitList{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*e = EmitList(many)
	return nil
}

// Match is a topic a rule selected for an event.
type Match struct {
	Topic   string
	Drivers []string
}

// RulesConfig represents the rule-specific parts of the configuration.
type RulesConfig struct {
	Rules  []Rule `yaml:"rules"`
	Strict bool   `yaml:"rules_strict"`
	Logger *log.Logger
}

type compiledRule struct {
	emit    EmitList
	drivers []string
	expr    *govaluate.EvaluableExpression
	paths   map[string]string
}

// RuleEngine evaluates routing rules against classified events. Rule
// expressions see the flattened payload (dot keys, bracketed indexes), the
// canonical record under "record.*", the provider and event name, and
// "$."-prefixed JSONPath terms resolved against the raw payload.
type RuleEngine struct {
	rules  []compiledRule
	strict bool
	logger *log.Logger
}

func NewRuleEngine(cfg RulesConfig) (*RuleEngine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rewritten, paths := rewriteExpression(rule.When)
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(rewritten, ruleFunctions)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.When, err)
		}
		rules = append(rules, compiledRule{emit: rule.Emit, drivers: rule.Drivers, expr: expr, paths: paths})
	}

	return &RuleEngine{rules: rules, strict: cfg.Strict, logger: logger}, nil
}

// Evaluate returns the topic matches for an event, one Match per emitted
// topic. A rule that fails to evaluate is skipped, never fatal.
func (r *RuleEngine) Evaluate(event Event) []Match {
	if len(r.rules) == 0 {
		return nil
	}

	if event.RawObject == nil && len(event.RawPayload) > 0 {
		var raw interface{}
		if err := json.Unmarshal(event.RawPayload, &raw); err == nil {
			event.RawObject = raw
			if object, ok := raw.(map[string]interface{}); ok && event.Data == nil {
				event.Data = Flatten(object)
			}
		}
	}

	matches := make([]Match, 0, 1)
	for _, rule := range r.rules {
		params := ruleParams{event: event, paths: rule.paths, strict: r.strict}
		result, err := rule.expr.Eval(params)
		if err != nil {
			if !r.strict {
				r.logger.Printf("rule eval failed: %v", err)
			}
			continue
		}
		ok, _ := result.(bool)
		if !ok {
			continue
		}
		for _, topic := range rule.emit {
			matches = append(matches, Match{Topic: topic, Drivers: rule.drivers})
		}
	}
	return matches
}

type ruleParams struct {
	event  Event
	paths  map[string]string
	strict bool
}

func (p ruleParams) Get(name string) (interface{}, error) {
	if path, ok := p.paths[name]; ok {
		return p.resolvePath(path)
	}
	switch name {
	case "provider":
		return p.event.Provider, nil
	case "event":
		return p.event.Name, nil
	}
	if value, ok := p.event.Data[name]; ok {
		return value, nil
	}
	if p.strict {
		return nil, fmt.Errorf("unknown parameter %s", name)
	}
	return nil, nil
}

func (p ruleParams) resolvePath(path string) (interface{}, error) {
	if record := p.event.Record; record != nil {
		switch path {
		case "record.author":
			return record.Author, nil
		case "record.action":
			return string(record.Action), nil
		case "record.from_branch":
			if record.FromBranch == nil {
				return nil, nil
			}
			return *record.FromBranch, nil
		case "record.to_branch":
			return record.ToBranch, nil
		case "record.timestamp":
			return record.Timestamp, nil
		}
	}
	if !strings.HasPrefix(path, "$.") {
		if value, ok := p.event.Data[path]; ok {
			return value, nil
		}
		path = "$." + path
	}
	if p.event.RawObject == nil {
		if p.strict {
			return nil, fmt.Errorf("no payload for %s", path)
		}
		return nil, nil
	}
	value, err := jsonpath.Get(path, p.event.RawObject)
	if err != nil {
		if p.strict {
			return nil, err
		}
		return nil, nil
	}
	return value, nil
}

var ruleFunctions = map[string]govaluate.ExpressionFunction{
	"contains": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("contains expects 2 arguments, got %d", len(args))
		}
		switch haystack := args[0].(type) {
		case []interface{}:
			for _, item := range haystack {
				if item == args[1] {
					return true, nil
				}
			}
			return false, nil
		case string:
			needle, _ := args[1].(string)
			return strings.Contains(haystack, needle), nil
		default:
			return false, nil
		}
	},
	"like": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("like expects 2 arguments, got %d", len(args))
		}
		value, _ := args[0].(string)
		pattern, _ := args[1].(string)
		return sqlLike(value, pattern), nil
	},
}

func sqlLike(value, pattern string) bool {
	var re strings.Builder
	re.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			re.WriteString(".*")
		case '_':
			re.WriteString(".")
		default:
			re.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re.WriteString("$")
	matched, err := regexp.MatchString(re.String(), value)
	return err == nil && matched
}

// rewriteExpression replaces dotted paths, indexed paths, and "$."-prefixed
// JSONPath terms with synthetic parameter names govaluate can parse, and
// returns the mapping the resolver uses to look the originals up. Plain
// identifiers, literals, and function calls pass through untouched.
func rewriteExpression(expr string) (string, map[string]string) {
	paths := make(map[string]string)
	byPath := make(map[string]string)
	var out strings.Builder
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(expr) {
				if expr[j] == '\\' && j+1 < len(expr) {
					j += 2
					continue
				}
				if expr[j] == c {
					j++
					break
				}
				j++
			}
			out.WriteString(expr[i:j])
			i = j
		case c == '$' || isIdentStart(c):
			token, next := scanPathToken(expr, i)
			out.WriteString(renderToken(token, expr, next, paths, byPath))
			i = next
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), paths
}

func scanPathToken(expr string, start int) (string, int) {
	i := start
	if expr[i] == '$' {
		i++
		if i >= len(expr) || expr[i] != '.' {
			return expr[start:i], i
		}
		i++
	}
	for i < len(expr) {
		c := expr[i]
		switch {
		case isIdentPart(c):
			i++
		case c == '.':
			if i+1 < len(expr) && isIdentStart(expr[i+1]) {
				i += 2
			} else {
				return expr[start:i], i
			}
		case c == '[':
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 || !isDigits(expr[i+1:i+end]) {
				return expr[start:i], i
			}
			i += end + 1
		default:
			return expr[start:i], i
		}
	}
	return expr[start:i], i
}

func renderToken(token, expr string, next int, paths, byPath map[string]string) string {
	switch token {
	case "true", "false", "in", "nil":
		return token
	}
	if !strings.ContainsAny(token, ".[$") {
		return token
	}
	j := next
	for j < len(expr) && expr[j] == ' ' {
		j++
	}
	if j < len(expr) && expr[j] == '(' && !strings.HasPrefix(token, "$") {
		return token
	}
	if name, ok := byPath[token]; ok {
		return "[" + name + "]"
	}
	name := fmt.Sprintf("__path%d", len(paths))
	paths[name] = token
	byPath[token] = name
	return "[" + name + "]"
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
