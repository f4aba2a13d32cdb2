package firewall

import (
	"fmt"
)

// Zone is a coarse network-location classifier.
type Zone string

const (
	ZoneLAN Zone = "LAN"
	ZoneWAN Zone = "WAN"
)

// Protocol is the transport protocol of a simulated packet.
type Protocol string

const (
	ProtocolTCP Protocol = "TCP"
	ProtocolUDP Protocol = "UDP"
)

// Action is the verdict a rule applies to matching traffic.
type Action string

const (
	ActionAllow Action = "ALLOW"
	ActionDeny  Action = "DENY"
)

// Rule is a single entry in an ordered firewall ACL. Order is semantically
// significant: the first matching rule wins.
type Rule struct {
	ID       string   `json:"id"`
	SrcZone  Zone     `json:"srcZone"`
	DstZone  Zone     `json:"dstZone"`
	Protocol Protocol `json:"protocol"`
	Port     int      `json:"port"`
	Action   Action   `json:"action"`
}

// Validate checks the rule for semantic correctness.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("firewall: rule has empty id")
	}
	if r.SrcZone != ZoneLAN && r.SrcZone != ZoneWAN {
		return fmt.Errorf("firewall: rule %s: invalid source zone %q", r.ID, r.SrcZone)
	}
	if r.DstZone != ZoneLAN && r.DstZone != ZoneWAN {
		return fmt.Errorf("firewall: rule %s: invalid destination zone %q", r.ID, r.DstZone)
	}
	if r.Protocol != ProtocolTCP && r.Protocol != ProtocolUDP {
		return fmt.Errorf("firewall: rule %s: invalid protocol %q", r.ID, r.Protocol)
	}
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("firewall: rule %s: invalid port %d", r.ID, r.Port)
	}
	if r.Action != ActionAllow && r.Action != ActionDeny {
		return fmt.Errorf("firewall: rule %s: invalid action %q", r.ID, r.Action)
	}
	return nil
}

// Traffic describes one simulated packet to be checked against the ACL.
type Traffic struct {
	SrcZone  Zone     `json:"srcZone"`
	DstZone  Zone     `json:"dstZone"`
	Protocol Protocol `json:"protocol"`
	Port     int      `json:"port"`
}

// Decision is the outcome of evaluating traffic against a rule list.
// MatchedIndex is -1 and MatchedRuleID empty when no rule matched.
type Decision struct {
	Action       Action `json:"action"`
	MatchedIndex int    `json:"matchedRuleIndex"`
	MatchedRuleID string `json:"matchedRuleId,omitempty"`
}

// Matches reports whether the rule's 4-tuple equals the traffic's exactly.
func (r *Rule) Matches(t Traffic) bool {
	return r.SrcZone == t.SrcZone &&
		r.DstZone == t.DstZone &&
		r.Protocol == t.Protocol &&
		r.Port == t.Port
}

// Evaluate scans rules front-to-back and returns the first matching rule's
// action and identity. Traffic matching no rule is denied (fail closed).
// Pure and deterministic; safe to call on every simulated packet tick.
func Evaluate(rules []Rule, traffic Traffic) Decision {
	for i, r := range rules {
		if r.Matches(traffic) {
			return Decision{
				Action:        r.Action,
				MatchedIndex:  i,
				MatchedRuleID: r.ID,
			}
		}
	}
	return Decision{Action: ActionDeny, MatchedIndex: -1}
}

// DefaultRules returns the seed rule set used to bootstrap the editor UI.
// The WAN→LAN SSH allow is intentionally vulnerable; the teaching exercise
// has students find and close it.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "deny-lan-https", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443, Action: ActionDeny},
		{ID: "deny-wan-https", SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 443, Action: ActionDeny},
		{ID: "allow-wan-ssh", SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22, Action: ActionAllow},
	}
}
