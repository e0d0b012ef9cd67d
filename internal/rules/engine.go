package rules

// Decision is the outcome of evaluating one message against a rule set.
type Decision struct {
	// Suppress is set when any matching rule carries the exclude action.
	Suppress bool
	// Matched holds the monitor rules that matched, in rule-set order.
	Matched []Rule
}

// Forward reports whether the message should be relayed. Only a
// non-empty monitor match list with no exclude match forwards.
func (d Decision) Forward() bool {
	return !d.Suppress && len(d.Matched) > 0
}

// Evaluate runs every rule against the message and applies the
// exclude-dominates-monitor precedence: all rules are evaluated before
// the decision is made, and a single exclude match suppresses the
// message regardless of any monitor matches.
func Evaluate(ruleSet []Rule, text string, senderID int64) Decision {
	var decision Decision

	for _, rule := range ruleSet {
		if !rule.Matches(text, senderID) {
			continue
		}

		switch rule.Action {
		case ActionExclude:
			decision.Suppress = true
		case ActionMonitor:
			decision.Matched = append(decision.Matched, rule)
		}
	}

	if decision.Suppress {
		decision.Matched = nil
	}

	return decision
}
