package agentrt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// maxRepeats is the occurrence threshold at which a recurring error
// signature aborts the run, per the runtime's loop-detection contract.
const maxRepeats = 3

// signaturePrefixLen bounds how much of an error message contributes
// to its identity, so a signature doesn't drift on volatile suffixes
// (timestamps, byte offsets) while still distinguishing error classes.
const signaturePrefixLen = 120

// loopDetector tracks ErrorSignature occurrences and previously-failed
// (tool, args) attempts for a single run.
type loopDetector struct {
	signatures map[string]*orchtypes.ErrorSignature
	attempted  map[string]bool // digest of tool+args that already produced an error
}

func newLoopDetector() *loopDetector {
	return &loopDetector{
		signatures: make(map[string]*orchtypes.ErrorSignature),
		attempted:  make(map[string]bool),
	}
}

func errClass(toolName, errMsg string) string {
	if len(errMsg) > signaturePrefixLen {
		errMsg = errMsg[:signaturePrefixLen]
	}
	return toolName + ":" + errMsg
}

func digestOf(toolName string, args []byte) string {
	h := sha256.Sum256(append([]byte(toolName+":"), args...))
	return hex.EncodeToString(h[:8])
}

// RecordError registers a failing tool result and returns the updated
// signature plus whether the run should now abort.
func (d *loopDetector) RecordError(toolName string, args []byte, errMsg string) (orchtypes.ErrorSignature, bool) {
	prefix := errMsg
	if len(prefix) > signaturePrefixLen {
		prefix = prefix[:signaturePrefixLen]
	}
	class := errClass(toolName, errMsg)
	h := sha256.Sum256([]byte(class))
	hash := hex.EncodeToString(h[:])

	sig, ok := d.signatures[hash]
	if !ok {
		sig = &orchtypes.ErrorSignature{Hash: hash, ToolName: toolName, ErrClass: class, Prefix: prefix}
		d.signatures[hash] = sig
	}
	sig.Count++

	d.attempted[digestOf(toolName, args)] = true

	return *sig, sig.Count >= maxRepeats
}

// AlreadyFailed reports whether this exact (tool, args) pair already
// produced an error earlier in the run, meaning it must not be retried.
func (d *loopDetector) AlreadyFailed(toolName string, args []byte) bool {
	return d.attempted[digestOf(toolName, args)]
}

// ErrRepeatedAttempt describes the refusal to dispatch a call identical
// to one that already failed in this run. Run does not return it: it
// appends an error tool result for the refused call and goes back to
// Reasoning.
var ErrRepeatedAttempt = fmt.Errorf("agentrt: identical call already failed in this run")
