package pipeline

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abceng/pressline/pkg/types"
)

// Keys of one loss event object inside multiple_loss_code.
const (
	keyLossName = "lossName"
	keyLossTime = "lossTime"
)

// ParseLossCode decodes a multiple_loss_code payload such as
//
//	[{'lossName': 'Machine Idle', 'lossTime': '5:00'}, {'lossName': "Operator's break", 'lossTime': 12}]
//
// The payload is read as a YAML flow sequence, which accepts single- and
// double-quoted strings alike. ok is false when the payload is blank,
// malformed, or anything other than a sequence of mappings; events is then nil.
//
// Scalars are kept as their source text, so an unquoted 010 is ten minutes
// rather than a YAML octal. An unquoted None, null or ~ lossName, a missing
// one or '' is reported as an empty Name; a quoted 'None' is a real name.
func ParseLossCode(raw string) (events []types.LossEvent, ok bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, false
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, false
	}

	events = make([]types.LossEvent, 0, len(seq.Content))
	for _, item := range seq.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.MappingNode {
			return nil, false
		}
		var ev types.LossEvent
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, val := resolveAlias(item.Content[i]), resolveAlias(item.Content[i+1])
			switch key.Value {
			case keyLossName:
				ev.Name = lossName(val)
			case keyLossTime:
				ev.Time = lossTime(val)
			}
		}
		events = append(events, ev)
	}
	return events, true
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// isNull reports whether n is an unquoted null. Python's None is written
// unquoted in the payload.
func isNull(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode || n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) != 0 {
		return false
	}
	return n.Tag == "!!null" || n.Value == "None"
}

func lossName(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode || isNull(n) {
		return ""
	}
	return n.Value
}

// lossTime returns the scalar text for Minutes, or nil when absent.
func lossTime(n *yaml.Node) any {
	if n.Kind != yaml.ScalarNode || isNull(n) {
		return nil
	}
	return n.Value
}
