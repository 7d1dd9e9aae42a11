package constitution

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseValidDocument(t *testing.T) {
	rs, err := Parse([]byte(`
stripe_refund:
  - condition: high_value
    action: reject
    reason: "too much"
  - condition: any
    action: approve
    reason: "fine"
cancel_subscription:
  - condition: high_tenure
    action: escalate
    reason: "review first"
    threshold: 365
`))
	if err != nil {
		t.Fatal(err)
	}

	refund := rs.RulesFor("stripe_refund")
	if len(refund) != 2 {
		t.Fatalf("expected 2 refund rules, got %d", len(refund))
	}
	if refund[0].Action != ActionReject || refund[1].Action != ActionApprove {
		t.Fatalf("rule order not preserved: %+v", refund)
	}

	cancel := rs.RulesFor("cancel_subscription")
	if len(cancel) != 1 {
		t.Fatalf("expected 1 cancel rule, got %d", len(cancel))
	}
	if cancel[0].Threshold == nil || *cancel[0].Threshold != 365 {
		t.Fatalf("expected threshold 365, got %v", cancel[0].Threshold)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	rs, err := Parse([]byte(`
send_email:
  - reason: "no condition or action given"
`))
	if err != nil {
		t.Fatal(err)
	}

	rules := rs.RulesFor("send_email")
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0].Condition != "any" {
		t.Fatalf("expected default condition any, got %q", rules[0].Condition)
	}
	if rules[0].Action != ActionApprove {
		t.Fatalf("expected default action approve, got %q", rules[0].Action)
	}
}

func TestParseRejectsInvalidAction(t *testing.T) {
	_, err := Parse([]byte(`
stripe_refund:
  - condition: any
    action: obliterate
`))
	if err == nil {
		t.Fatal("expected error for invalid action")
	}
}

func TestParseRejectsNegativeThreshold(t *testing.T) {
	_, err := Parse([]byte(`
stripe_refund:
  - condition: high_value
    action: reject
    threshold: -5
`))
	if err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("{{{not yaml"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
}

func TestLoadFromFileValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("send_email:\n  - condition: any\n    action: approve\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	rs, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.RulesFor("send_email")) != 1 {
		t.Fatal("expected rule loaded from file")
	}
}

func TestRulesForUnknownAction(t *testing.T) {
	rs, err := Parse([]byte("send_email:\n  - condition: any\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rules := rs.RulesFor("unlisted"); rules != nil {
		t.Fatalf("expected nil rules for unlisted action, got %v", rules)
	}
}
