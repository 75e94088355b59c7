package emulation

import (
	"strings"

	"mq-designer/topology"
)

// MatchTopic reports whether a topic pattern matches a routing key. Words are
// separated by dots, "*" matches exactly one word and "#" matches zero or
// more words.
func MatchTopic(pattern, key string) bool {
	if pattern == key {
		return true
	}
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			// Try consuming zero, one, two... key words for this hash.
			for i := 0; i <= len(key); i++ {
				if matchWords(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || pattern[0] != key[0] {
				return false
			}
		}
		pattern = pattern[1:]
		key = key[1:]
	}
	return len(key) == 0
}

// matchHeaders implements the headers-exchange match. The binding arguments
// other than "x-match" are the required header values; "all" needs every one
// of them present and equal, "any" needs at least one.
func matchHeaders(bindArgs, headers map[string]interface{}) bool {
	mode, _ := bindArgs["x-match"].(string)

	matched, required := 0, 0
	for k, want := range bindArgs {
		if k == "x-match" {
			continue
		}
		required++
		if got, ok := headers[k]; ok && got == want {
			matched++
		}
	}

	switch mode {
	case topology.XMatchAny:
		return matched > 0
	default:
		// "all" is also the broker default when x-match is absent.
		return required > 0 && matched == required
	}
}

// matchBinding reports whether a message with the given routing key and
// headers passes one binding on an exchange of the given kind.
func matchBinding(kind string, b topology.Binding, routingKey string, headers map[string]interface{}) bool {
	switch kind {
	case topology.KindFanout:
		return true
	case topology.KindDirect:
		return b.RoutingKey == routingKey
	case topology.KindTopic:
		return MatchTopic(b.RoutingKey, routingKey)
	case topology.KindHeaders:
		return matchHeaders(b.Args, headers)
	default:
		return false
	}
}
