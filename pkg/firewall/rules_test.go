package firewall

import (
	"testing"
)

func TestEvaluateFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{ID: "allow-https", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443, Action: ActionAllow},
		{ID: "deny-https", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443, Action: ActionDeny},
	}
	traffic := Traffic{SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443}

	d := Evaluate(rules, traffic)
	if d.Action != ActionAllow {
		t.Errorf("expected first rule's ALLOW, got %s", d.Action)
	}
	if d.MatchedIndex != 0 || d.MatchedRuleID != "allow-https" {
		t.Errorf("expected match on rule 0 (allow-https), got index %d id %q", d.MatchedIndex, d.MatchedRuleID)
	}

	// Same two rules reversed: order alone flips the outcome.
	reversed := []Rule{rules[1], rules[0]}
	d = Evaluate(reversed, traffic)
	if d.Action != ActionDeny || d.MatchedIndex != 0 {
		t.Errorf("expected DENY from rule 0 after reorder, got %+v", d)
	}
}

func TestEvaluateDefaultDeny(t *testing.T) {
	rules := []Rule{
		{ID: "r1", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443, Action: ActionDeny},
	}

	// Exact match on the single rule.
	d := Evaluate(rules, Traffic{SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443})
	if d.Action != ActionDeny || d.MatchedIndex != 0 {
		t.Errorf("expected DENY matched at 0, got %+v", d)
	}

	// Reversed direction matches nothing: default deny, no matched rule.
	d = Evaluate(rules, Traffic{SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 443})
	if d.Action != ActionDeny {
		t.Errorf("expected default DENY, got %s", d.Action)
	}
	if d.MatchedIndex != -1 || d.MatchedRuleID != "" {
		t.Errorf("expected no matched rule, got index %d id %q", d.MatchedIndex, d.MatchedRuleID)
	}
}

func TestEvaluateEmptyRules(t *testing.T) {
	d := Evaluate(nil, Traffic{SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolUDP, Port: 53})
	if d.Action != ActionDeny || d.MatchedIndex != -1 {
		t.Errorf("empty rule list must default-deny, got %+v", d)
	}
}

func TestEvaluateRequiresAllFourFields(t *testing.T) {
	rule := Rule{ID: "r", SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22, Action: ActionAllow}

	almost := []Traffic{
		{SrcZone: ZoneLAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22},
		{SrcZone: ZoneWAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 22},
		{SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolUDP, Port: 22},
		{SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 23},
	}
	for _, tr := range almost {
		if d := Evaluate([]Rule{rule}, tr); d.MatchedIndex != -1 {
			t.Errorf("traffic %+v must not match rule, got %+v", tr, d)
		}
	}
}

func TestDefaultRulesSeed(t *testing.T) {
	rules := DefaultRules()
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			t.Errorf("seed rule %d invalid: %v", i, err)
		}
	}

	// The intentionally vulnerable SSH hole must be open.
	d := Evaluate(rules, Traffic{SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22})
	if d.Action != ActionAllow {
		t.Errorf("expected seed rules to allow WAN→LAN SSH, got %+v", d)
	}

	d = Evaluate(rules, Traffic{SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 443})
	if d.Action != ActionDeny || d.MatchedIndex != 0 {
		t.Errorf("expected seed rules to deny LAN→WAN HTTPS at index 0, got %+v", d)
	}
}

func TestRuleValidate(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		ok   bool
	}{
		{"valid", Rule{ID: "r", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 80, Action: ActionAllow}, true},
		{"empty id", Rule{SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 80, Action: ActionAllow}, false},
		{"bad zone", Rule{ID: "r", SrcZone: "DMZ", DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 80, Action: ActionAllow}, false},
		{"bad protocol", Rule{ID: "r", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: "ICMP", Port: 80, Action: ActionAllow}, false},
		{"port zero", Rule{ID: "r", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 0, Action: ActionAllow}, false},
		{"port too high", Rule{ID: "r", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 70000, Action: ActionAllow}, false},
		{"bad action", Rule{ID: "r", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 80, Action: "DROP"}, false},
	}
	for _, tc := range cases {
		err := tc.rule.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRuleSetReplaceAndEvaluate(t *testing.T) {
	rs := NewRuleSet(DefaultRules())

	var notified [][]Rule
	rs.OnChange(func(rules []Rule) {
		notified = append(notified, rules)
	})

	// Close the SSH hole.
	patched := []Rule{
		{ID: "deny-wan-ssh", SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22, Action: ActionDeny},
	}
	if err := rs.Replace(patched); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(notified) != 1 || len(notified[0]) != 1 {
		t.Fatalf("expected one change notification with one rule, got %v", notified)
	}

	d := rs.Evaluate(Traffic{SrcZone: ZoneWAN, DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22})
	if d.Action != ActionDeny || d.MatchedRuleID != "deny-wan-ssh" {
		t.Errorf("expected patched DENY, got %+v", d)
	}
}

func TestRuleSetReplaceRejectsInvalid(t *testing.T) {
	rs := NewRuleSet(DefaultRules())

	err := rs.Replace([]Rule{{ID: "bad", SrcZone: "MARS", DstZone: ZoneLAN, Protocol: ProtocolTCP, Port: 22, Action: ActionDeny}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(rs.Rules()) != len(DefaultRules()) {
		t.Error("failed Replace must leave the existing list untouched")
	}

	err = rs.Replace([]Rule{
		{ID: "dup", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 80, Action: ActionAllow},
		{ID: "dup", SrcZone: ZoneLAN, DstZone: ZoneWAN, Protocol: ProtocolTCP, Port: 81, Action: ActionAllow},
	})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}
