package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// marshalEvidence converts evidence to canonical JSON TEXT for storage.
func marshalEvidence(ev ir.IRObject) (string, error) {
	if ev == nil {
		ev = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(ev)
	if err != nil {
		return "", fmt.Errorf("marshal evidence: %w", err)
	}
	return string(data), nil
}

// unmarshalEvidence parses stored evidence. Decimal literals decode to
// ir.IRDecimal so money survives a round trip exactly.
func unmarshalEvidence(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	return obj, nil
}

// marshalCitations stores citations as a JSON array. HTML escaping is off
// so "§" and "&" are stored literally.
func marshalCitations(cites []string) (string, error) {
	if cites == nil {
		cites = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cites); err != nil {
		return "", fmt.Errorf("marshal citations: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalCitations(data string) ([]string, error) {
	var cites []string
	if data == "" || data == "[]" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(data), &cites); err != nil {
		return nil, fmt.Errorf("unmarshal citations: %w", err)
	}
	return cites, nil
}
