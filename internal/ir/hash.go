package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainFinding = "vioverse/finding/v1"
	DomainRuleSet = "vioverse/ruleset/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FindingID computes the content-addressed ID of a violation or audit note.
//
// The ID covers the rule, the row, the entity identity and the evidence, so
// rerunning the same inputs reproduces the same IDs, and the same rule firing
// on the same row is recognised as a duplicate across runs.
func FindingID(ruleID string, row int, entity EntityIdentity, evidence IRObject) (string, error) {
	obj := IRObject{
		"rule_id":  IRString(ruleID),
		"row":      IRInt(row),
		"entity":   entity.toIR(),
		"evidence": evidence,
	}
	if evidence == nil {
		obj["evidence"] = IRObject{}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FindingID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFinding, canonical), nil
}

// RuleSetHash fingerprints a compiled rule set by id, severity and kind in
// declaration order. Stored with each run so results can be traced back to the
// rules that produced them.
func RuleSetHash(rules []Rule) (string, error) {
	arr := make(IRArray, len(rules))
	for i, r := range rules {
		arr[i] = IRObject{
			"id":       IRString(r.ID),
			"severity": IRString(r.Severity.String()),
			"kind":     IRString(string(r.Kind)),
			"when":     IRString(DescribeCondition(r.When)),
		}
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("RuleSetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleSet, canonical), nil
}

// MustFindingID is like FindingID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFindingID(ruleID string, row int, entity EntityIdentity, evidence IRObject) string {
	id, err := FindingID(ruleID, row, entity, evidence)
	if err != nil {
		panic(err)
	}
	return id
}
