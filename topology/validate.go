package topology

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation failures that block a mutation. Advisory routing-key and binding
// checks never use these; they report through their result structs instead.
var (
	ErrNameEmpty        = errors.New("name must not be empty")
	ErrNameTooLong      = errors.New("name must not exceed 255 characters")
	ErrNameInvalid      = errors.New("name contains invalid characters")
	ErrUnknownKind      = errors.New("unknown exchange kind")
	ErrUnknownApplyTo   = errors.New("unknown policy target")
	ErrDuplicateName    = errors.New("name is already in use")
	ErrAlternateSelf    = errors.New("alternate exchange must not reference the exchange itself")
	ErrAlternateMissing = errors.New("alternate exchange does not exist")
	ErrAlternateCycle   = errors.New("alternate exchange chain forms a cycle")
)

var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9\-_.:/]+$`)

// ValidateName checks an exchange, queue or policy name for the character and
// length rules shared by all entities.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > 255 {
		return ErrNameTooLong
	}
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrNameInvalid, name)
	}
	return nil
}

// RoutingKeyValidationResult is the advisory outcome of a topic routing key
// check. Warning is set only when Valid is false.
type RoutingKeyValidationResult struct {
	Valid   bool   `json:"valid"`
	Warning string `json:"warning,omitempty"`
}

// BindingValidationResult is the advisory outcome of a binding endpoint
// existence check. Error is set only when Valid is false.
type BindingValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateTopicRoutingKey checks a routing key pattern destined for a topic
// exchange. The checks run in a fixed order and the first failing one wins,
// so a key with several problems always reports the same message.
//
// An empty key is valid: it binds, it just matches nothing but the empty key.
func ValidateTopicRoutingKey(key string) RoutingKeyValidationResult {
	if key == "" {
		return RoutingKeyValidationResult{Valid: true}
	}

	if strings.Contains(key, "**") {
		return RoutingKeyValidationResult{
			Valid:   false,
			Warning: "Invalid: consecutive wildcards (**) are not allowed",
		}
	}

	if strings.HasPrefix(key, "*") || strings.HasPrefix(key, "#") {
		return RoutingKeyValidationResult{
			Valid:   false,
			Warning: "Warning: wildcard at the start may not match as expected",
		}
	}

	// The position check looks at whole words: only a segment that is
	// exactly "#" acts as the multi-word wildcard.
	words := strings.Split(key, ".")
	for i, w := range words {
		if w == "#" && i != len(words)-1 {
			return RoutingKeyValidationResult{
				Valid:   false,
				Warning: "Invalid: # wildcard must be at the end of the pattern",
			}
		}
	}

	if strings.Count(key, "#") > 1 {
		return RoutingKeyValidationResult{
			Valid:   false,
			Warning: "Invalid: only one # wildcard is allowed and must be at the end",
		}
	}

	return RoutingKeyValidationResult{Valid: true}
}

// ValidateBinding checks that both endpoints of a binding exist in the given
// topology snapshot. The exchange is checked before the queue, so a binding
// with two broken endpoints reports the missing exchange.
//
// The function is pure: it only looks at the slices passed in, never at any
// live state, so callers decide exactly which snapshot the check runs against.
func ValidateBinding(source, destination string, exchanges []Exchange, queues []Queue) BindingValidationResult {
	foundExchange := false
	for i := range exchanges {
		if exchanges[i].Name == source {
			foundExchange = true
			break
		}
	}
	if !foundExchange {
		return BindingValidationResult{
			Valid: false,
			Error: fmt.Sprintf("Exchange %q does not exist", source),
		}
	}

	foundQueue := false
	for i := range queues {
		if queues[i].Name == destination {
			foundQueue = true
			break
		}
	}
	if !foundQueue {
		return BindingValidationResult{
			Valid: false,
			Error: fmt.Sprintf("Queue %q does not exist", destination),
		}
	}

	return BindingValidationResult{Valid: true}
}

// BindingCheck is the combined advisory result for a binding request.
//
// Valid reports whether the binding may be stored at all. RoutingKey is set
// only when the source is a topic exchange and a non-empty routing key was
// supplied; an invalid routing key does not flip Valid, because whether it
// blocks creation is the caller's policy (strict mode) and not a property of
// the binding itself.
type BindingCheck struct {
	Valid      bool                        `json:"valid"`
	Error      string                      `json:"error,omitempty"`
	RoutingKey *RoutingKeyValidationResult `json:"routing_key,omitempty"`
}

// CheckBinding validates a binding request against a topology snapshot:
// endpoint existence first, then the kind-specific argument rules, then the
// advisory topic routing key check.
func CheckBinding(b Binding, exchanges []Exchange, queues []Queue) BindingCheck {
	res := ValidateBinding(b.Source, b.Destination, exchanges, queues)
	if !res.Valid {
		return BindingCheck{Valid: false, Error: res.Error}
	}

	var source *Exchange
	for i := range exchanges {
		if exchanges[i].Name == b.Source {
			source = &exchanges[i]
			break
		}
	}

	switch source.Kind {
	case KindHeaders:
		mode, _ := b.Args["x-match"].(string)
		if mode != XMatchAll && mode != XMatchAny {
			return BindingCheck{
				Valid: false,
				Error: `binding to a headers exchange requires an "x-match" argument of "all" or "any"`,
			}
		}
	case KindTopic:
		if b.RoutingKey != "" {
			rk := ValidateTopicRoutingKey(b.RoutingKey)
			return BindingCheck{Valid: true, RoutingKey: &rk}
		}
	}

	return BindingCheck{Valid: true}
}

// ApplyQueueFlag sets a boolean queue flag and returns the corrected queue.
// Durable and exclusive are mutually exclusive: turning one on eagerly turns
// the other off in the same update. There is no error state and applying the
// same update twice yields the same queue.
func ApplyQueueFlag(q Queue, field string, value bool) Queue {
	switch field {
	case "durable":
		q.Durable = value
		if value && q.Exclusive {
			q.Exclusive = false
		}
	case "exclusive":
		q.Exclusive = value
		if value && q.Durable {
			q.Durable = false
		}
	case "auto_delete":
		q.AutoDelete = value
	}
	return q
}

// ValidateExchange checks an exchange definition against a topology snapshot.
// current is the name the exchange already has in the snapshot ("" for a new
// exchange); it allows renames-in-place and anchors the alternate-exchange
// cycle walk.
func ValidateExchange(ex Exchange, cfg *Config, current string) error {
	if err := ValidateName(ex.Name); err != nil {
		return err
	}
	switch ex.Kind {
	case KindDirect, KindTopic, KindFanout, KindHeaders:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, ex.Kind)
	}
	if existing := cfg.FindExchange(ex.Name); existing != nil && ex.Name != current {
		return fmt.Errorf("%w: exchange %q", ErrDuplicateName, ex.Name)
	}

	if ex.AlternateExchange == "" {
		return nil
	}
	if ex.AlternateExchange == ex.Name {
		return ErrAlternateSelf
	}
	if cfg.FindExchange(ex.AlternateExchange) == nil {
		return fmt.Errorf("%w: %q", ErrAlternateMissing, ex.AlternateExchange)
	}

	// Walk the alternate-exchange chain with this definition applied on
	// top of the snapshot. Revisiting any node means the chain loops.
	next := make(map[string]string, len(cfg.Exchanges)+1)
	for _, other := range cfg.Exchanges {
		if other.AlternateExchange != "" {
			next[other.Name] = other.AlternateExchange
		}
	}
	if current != "" && current != ex.Name {
		delete(next, current)
	}
	next[ex.Name] = ex.AlternateExchange

	seen := map[string]bool{}
	for node := ex.Name; node != ""; node = next[node] {
		if seen[node] {
			return fmt.Errorf("%w: starting at %q", ErrAlternateCycle, ex.Name)
		}
		seen[node] = true
	}
	return nil
}

// ValidateQueue checks a queue definition against a topology snapshot.
// current works as in ValidateExchange.
func ValidateQueue(q Queue, cfg *Config, current string) error {
	if err := ValidateName(q.Name); err != nil {
		return err
	}
	if existing := cfg.FindQueue(q.Name); existing != nil && q.Name != current {
		return fmt.Errorf("%w: queue %q", ErrDuplicateName, q.Name)
	}
	if q.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative, got %d", q.MaxLength)
	}
	return nil
}

// ValidatePolicy checks a policy definition against a topology snapshot.
func ValidatePolicy(p Policy, cfg *Config, current string) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if existing := cfg.FindPolicy(p.Name); existing != nil && p.Name != current {
		return fmt.Errorf("%w: policy %q", ErrDuplicateName, p.Name)
	}
	switch p.ApplyTo {
	case ApplyToQueues, ApplyToExchanges, ApplyToAll:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownApplyTo, p.ApplyTo)
	}
	if _, err := regexp.Compile(p.Pattern); err != nil {
		return fmt.Errorf("failed to compile policy pattern: %w", err)
	}
	return nil
}
