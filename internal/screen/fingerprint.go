// File: internal/screen/fingerprint.go
package screen

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"strconv"
)

// Identity keys "the same logical screen" across visits. Compare with ==.
type Identity string

// Short returns a prefix suitable for logs.
func (id Identity) Short() string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}

// EmptyIdentity is the fingerprint of a tree with no nodes.
var EmptyIdentity = func() Identity {
	sum := sha256.Sum256(nil)
	return Identity(hex.EncodeToString(sum[:]))
}()

// DefaultVolatilePackages are excluded from fingerprints: the status bar
// and notification shade redraw independently of the foreground app.
var DefaultVolatilePackages = []string{"com.android.systemui"}

var digitRun = regexp.MustCompile(`\d+`)

// Fingerprinter derives an Identity from the structural tree only.
// Fields that flip between identical renders (index, focused, selected,
// checked, password) and whole subtrees of volatile packages are ignored.
// Digit runs in text are collapsed so clocks and counters do not split a screen.
type Fingerprinter struct {
	volatile map[string]struct{}
}

// NewFingerprinter builds a Fingerprinter ignoring the given packages.
func NewFingerprinter(volatilePackages []string) *Fingerprinter {
	f := &Fingerprinter{volatile: make(map[string]struct{}, len(volatilePackages))}
	for _, p := range volatilePackages {
		if p != "" {
			f.volatile[p] = struct{}{}
		}
	}
	return f
}

var defaultFingerprinter = NewFingerprinter(DefaultVolatilePackages)

// Fingerprint uses the default volatile package set.
func Fingerprint(obs *Observation) Identity {
	return defaultFingerprinter.Observation(obs)
}

// Observation fingerprints the observation's hierarchy. Screenshot pixels are never read.
func (f *Fingerprinter) Observation(obs *Observation) Identity {
	if obs == nil {
		return EmptyIdentity
	}
	return f.Fingerprint(obs.Hierarchy)
}

// Fingerprint hashes a canonical pre-order serialization of h.
func (f *Fingerprinter) Fingerprint(h *Hierarchy) Identity {
	digest := sha256.New()
	h.Walk(func(n *Node) bool {
		if _, skip := f.volatile[n.Package]; skip {
			return false
		}
		writeNode(digest, n)
		return true
	})
	return Identity(hex.EncodeToString(digest.Sum(nil)))
}

func writeNode(w io.Writer, n *Node) {
	fields := []string{
		strconv.Itoa(n.Depth),
		n.Class,
		n.ResourceID,
		n.Package,
		digitRun.ReplaceAllString(n.Text, "#"),
		digitRun.ReplaceAllString(n.ContentDesc, "#"),
		flags(n),
		n.RawBounds,
	}
	for _, field := range fields {
		// Length prefixes keep "ab"+"c" distinct from "a"+"bc".
		_, _ = io.WriteString(w, strconv.Itoa(len(field)))
		_, _ = io.WriteString(w, ":")
		_, _ = io.WriteString(w, field)
	}
	_, _ = io.WriteString(w, "\n")
}

func flags(n *Node) string {
	b := []byte("---")
	if n.Clickable {
		b[0] = 'c'
	}
	if n.Scrollable {
		b[1] = 's'
	}
	if n.Checkable {
		b[2] = 'k'
	}
	return string(b)
}
