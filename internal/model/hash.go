package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix allows the
// canonical form to change without colliding with older digests.
const (
	DomainRunDigest = "consol/run/v1"
	DomainGraph     = "consol/graph/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical JSON form of v under domain.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RunDigest hashes the parts of a run result that identify its outcome.
// Run ids and timestamps are excluded so two runs over identical inputs
// produce the same digest.
func RunDigest(r RunResult) (string, error) {
	nodes := make(map[string]any, len(r.Nodes))
	for id, n := range r.Nodes {
		entry := map[string]any{
			"status":  n.Status,
			"outputs": n.Outputs,
		}
		if n.Error != nil {
			entry["error"] = n.Error.Code
		}
		nodes[id] = entry
	}
	view := map[string]any{
		"process_id": r.ProcessID,
		"run_type":   r.RunType,
		"period":     r.Period,
		"status":     r.Status,
		"order":      r.Order,
		"nodes":      nodes,
		"validation": r.Validation,
		"deltas":     r.Deltas,
	}
	return Digest(DomainRunDigest, view)
}

// GraphDigest hashes a process definition's nodes and connections.
func GraphDigest(p ProcessDefinition) (string, error) {
	return Digest(DomainGraph, map[string]any{
		"nodes":       p.Nodes,
		"connections": p.Connections,
	})
}
