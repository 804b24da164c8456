package engine

import (
	"fmt"

	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

// Rule names, carried on every decision for audit and metrics labeling.
const (
	RuleSafeModeCeiling       = "safe_mode_ceiling"
	RuleCriticalEscalation    = "critical_escalation"
	RulePersistenceEscalation = "persistence_escalation"
	RulePhaseBaseMapping      = "phase_base_mapping"
	RuleDefaultLog            = "default_log"
)

// ruleInput carries everything one resolver pass needs.
type ruleInput struct {
	phase    mission.Phase
	policy   policy.PhasePolicy
	severity policy.SeverityLevel
	event    policy.AnomalyEvent
}

// outcome is the resolver's partial decision before confidence scoring.
type outcome struct {
	rule            string
	escalation      policy.EscalationLevel
	action          policy.Action
	vetoed          policy.Action
	isAllowed       bool
	reasoning       []string
	confidenceBoost float64
}

// rule is one prioritized resolver step. eval returns false to pass control
// to the next rule.
type rule struct {
	name string
	eval func(in ruleInput) (outcome, bool)
}

// resolverRules is the fixed priority order. The final rule matches
// unconditionally, so resolution is total for any classified severity.
var resolverRules = []rule{
	{name: RuleSafeModeCeiling, eval: evalSafeModeCeiling},
	{name: RuleCriticalEscalation, eval: evalCriticalEscalation},
	{name: RulePersistenceEscalation, eval: evalPersistenceEscalation},
	{name: RulePhaseBaseMapping, eval: evalPhaseBaseMapping},
	{name: RuleDefaultLog, eval: evalDefaultLog},
}

// resolve runs the prioritized rules, then the forbidden-action veto and the
// simultaneous-fault post-steps.
func resolve(in ruleInput) outcome {
	var out outcome
	for _, r := range resolverRules {
		if o, ok := r.eval(in); ok {
			out = o
			out.rule = r.name
			break
		}
	}

	applyForbiddenVeto(&out, in)
	applyConcurrencyBoost(&out, in)

	return out
}

// evalSafeModeCeiling caps every response at LOG_ONLY while the satellite is
// already in the most restrictive phase.
func evalSafeModeCeiling(in ruleInput) (outcome, bool) {
	if in.phase != mission.PhaseSafeMode {
		return outcome{}, false
	}
	return outcome{
		escalation: policy.EscalationLogOnly,
		action:     policy.ActionLogOnly,
		isAllowed:  false,
		reasoning: []string{fmt.Sprintf(
			"already in SAFE_MODE: automated response is capped at LOG_ONLY regardless of %s severity", in.severity)},
	}, true
}

// evalCriticalEscalation sends any critical anomaly straight to safe mode.
// Safe mode entry is always permitted, overriding phase action gating.
func evalCriticalEscalation(in ruleInput) (outcome, bool) {
	if in.severity != policy.SeverityCritical {
		return outcome{}, false
	}
	return outcome{
		escalation: policy.EscalationSafeMode,
		action:     policy.ActionEnterSafeMode,
		isAllowed:  true,
		reasoning: []string{fmt.Sprintf(
			"CRITICAL %s during %s: immediate safe mode entry", in.event.AnomalyType, in.phase)},
	}, true
}

// evalPersistenceEscalation treats repeated high-severity anomalies as a
// systemic problem. Both the recurrence threshold and the resulting level
// are phase configuration.
func evalPersistenceEscalation(in ruleInput) (outcome, bool) {
	pr := in.policy.Persistence
	if pr == nil || in.severity < policy.SeverityHigh {
		return outcome{}, false
	}
	if in.event.Attributes.RecurrenceCount < pr.RecurrenceThreshold {
		return outcome{}, false
	}

	out := outcome{
		escalation: pr.Escalation,
		isAllowed:  true,
		reasoning: []string{fmt.Sprintf(
			"%s %s recurred %d times during %s (threshold %d): treating as systemic, escalating to %s",
			in.severity, in.event.AnomalyType, in.event.Attributes.RecurrenceCount,
			in.phase, pr.RecurrenceThreshold, pr.Escalation)},
	}
	if pr.Escalation == policy.EscalationSafeMode {
		out.action = policy.ActionEnterSafeMode
	} else {
		out.action = in.policy.ResponseAction(in.event.AnomalyType)
	}
	return out, true
}

// evalPhaseBaseMapping applies the phase's base posture to HIGH and MEDIUM
// severity: operator alerting with autonomy withheld, or a controlled
// autonomous action drawn from the phase's response map.
func evalPhaseBaseMapping(in ruleInput) (outcome, bool) {
	if in.severity != policy.SeverityHigh && in.severity != policy.SeverityMedium {
		return outcome{}, false
	}

	switch in.policy.BaseEscalation {
	case policy.EscalationAlertOperators:
		return outcome{
			escalation: policy.EscalationAlertOperators,
			action:     policy.ActionAlertOperators,
			isAllowed:  false,
			reasoning: []string{fmt.Sprintf(
				"%s %s during %s: operators must direct the response, autonomous action withheld",
				in.severity, in.event.AnomalyType, in.phase)},
		}, true
	case policy.EscalationControlledAction:
		action := in.policy.ResponseAction(in.event.AnomalyType)
		return outcome{
			escalation: policy.EscalationControlledAction,
			action:     action,
			isAllowed:  true,
			reasoning: []string{fmt.Sprintf(
				"%s %s during %s: controlled autonomous response %s",
				in.severity, in.event.AnomalyType, in.phase, action)},
		}, true
	default:
		return outcome{}, false
	}
}

// evalDefaultLog is the unconditional terminal rule.
func evalDefaultLog(in ruleInput) (outcome, bool) {
	return outcome{
		escalation: policy.EscalationLogOnly,
		action:     policy.ActionLogEvent,
		isAllowed:  true,
		reasoning: []string{fmt.Sprintf(
			"%s %s during %s: logging only", in.severity, in.event.AnomalyType, in.phase)},
	}, true
}

// applyForbiddenVeto rejects a recommendation found in the phase's forbidden
// set: the decision drops one escalation level, autonomy is withdrawn, and a
// permitted replacement is recommended instead. A forbidden action is never
// the output of a decision.
func applyForbiddenVeto(out *outcome, in ruleInput) {
	if !in.policy.Forbids(out.action) {
		return
	}

	vetoed := out.action
	out.escalation = out.escalation.Downgrade()
	out.isAllowed = false
	out.action = vetoReplacement(in.policy, vetoed, out.escalation)
	out.vetoed = vetoed
	out.reasoning = append(out.reasoning, fmt.Sprintf(
		"%s is forbidden during %s: downgraded to %s, recommending %s",
		vetoed, in.phase, out.escalation, out.action))
}

// vetoReplacement picks a permitted recommendation at the downgraded level.
// LOG_EVENT is allowed in every phase, so the chain always terminates on a
// non-forbidden action.
func vetoReplacement(pol policy.PhasePolicy, vetoed policy.Action, level policy.EscalationLevel) policy.Action {
	var candidates []policy.Action
	if level >= policy.EscalationControlledAction {
		candidates = append(candidates, pol.DefaultAction)
	}
	if level >= policy.EscalationAlertOperators {
		candidates = append(candidates, policy.ActionAlertOperators)
	}
	candidates = append(candidates, policy.ActionLogEvent)

	for _, c := range candidates {
		if c != "" && c != vetoed && !pol.Forbids(c) {
			return c
		}
	}
	return policy.ActionLogEvent
}

// applyConcurrencyBoost raises confidence when enough distinct faults are
// active at once. It never changes severity or escalation.
func applyConcurrencyBoost(out *outcome, in ruleInput) {
	cr := in.policy.Concurrency
	if cr == nil || in.event.Attributes.SimultaneousFaults < cr.FaultThreshold {
		return
	}

	out.confidenceBoost += cr.ConfidenceBoost
	out.reasoning = append(out.reasoning, fmt.Sprintf(
		"%d simultaneous faults active (threshold %d) corroborate a systemic fault",
		in.event.Attributes.SimultaneousFaults, cr.FaultThreshold))
}
