// File: internal/screen/screen_test.go
package screen

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const launcherXML = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.systemui" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false" bounds="[0,0][1080,63]">
    <node index="0" text="12:45" resource-id="com.android.systemui:id/clock" class="android.widget.TextView" package="com.android.systemui" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false" bounds="[0,0][120,63]" />
  </node>
  <node index="1" text="" resource-id="com.android.launcher3:id/workspace" class="android.widget.FrameLayout" package="com.android.launcher3" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" scrollable="true" long-clickable="false" password="false" selected="false" bounds="[0,63][1080,2337]">
    <node index="0" text="Settings" resource-id="" class="android.widget.TextView" package="com.android.launcher3" content-desc="Settings" checkable="false" checked="false" clickable="true" enabled="true" focusable="true" focused="false" scrollable="false" long-clickable="true" password="false" selected="false" bounds="[100,200][300,400]">
      <node index="0" text="" resource-id="" class="android.widget.ImageView" package="com.android.launcher3" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false" bounds="[150,210][250,310]" />
    </node>
    <node index="1" text="Camera" resource-id="" class="android.widget.TextView" package="com.android.launcher3" content-desc="" checkable="false" checked="false" clickable="true" enabled="true" focusable="true" focused="true" scrollable="false" long-clickable="true" password="false" selected="false" bounds="[400,200][600,400]" />
    <node index="2" text="Decoration" resource-id="" class="android.view.View" package="com.android.launcher3" content-desc="" checkable="false" checked="false" clickable="false" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false" bounds="[700,200][900,400]" />
  </node>
</hierarchy>`

func mustParse(t *testing.T, raw string) *Hierarchy {
	t.Helper()
	h, err := Parse(raw)
	require.NoError(t, err)
	return h
}

// -- Bounds --

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("[100,200][300,400]")
	require.NoError(t, err)
	assert.Equal(t, Bounds{Left: 100, Top: 200, Right: 300, Bottom: 400}, b)
	assert.Equal(t, "[100,200][300,400]", b.String())
	x, y := b.Center()
	assert.Equal(t, 200, x)
	assert.Equal(t, 300, y)

	b, err = ParseBounds(" [ 1 , 2 ][ 3 , 4 ] ")
	require.NoError(t, err)
	assert.Equal(t, Bounds{1, 2, 3, 4}, b)

	for _, bad := range []string{"", "[1,2]", "100,200,300,400", "[a,b][c,d]", "[300,400][100,200]"} {
		_, err := ParseBounds(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestSizeContains(t *testing.T) {
	s := Size{Width: 1080, Height: 2400}
	assert.True(t, s.Contains(0, 0))
	assert.True(t, s.Contains(1079, 2399))
	assert.False(t, s.Contains(1080, 10))
	assert.False(t, s.Contains(-1, 10))

	var unknown Size
	assert.False(t, unknown.Known())
	assert.True(t, unknown.Contains(5000, 5000))
}

// -- Hierarchy --

func TestParse(t *testing.T) {
	h := mustParse(t, launcherXML)
	require.Len(t, h.Roots, 2)
	assert.Equal(t, 7, h.Len())

	workspace := h.Roots[1]
	assert.Equal(t, "com.android.launcher3:id/workspace", workspace.ResourceID)
	assert.True(t, workspace.Scrollable)
	require.Len(t, workspace.Children, 3)

	settings := workspace.Children[0]
	assert.Equal(t, "Settings", settings.Text)
	assert.Equal(t, 1, settings.Depth)
	assert.Same(t, workspace, settings.Parent)
	assert.True(t, settings.HasBounds)
	assert.Equal(t, Bounds{100, 200, 300, 400}, settings.Bounds)
}

func TestParse_BareNodeRoot(t *testing.T) {
	h := mustParse(t, `<node class="a" bounds="[0,0][10,10]"><node class="b"/></node>`)
	require.Len(t, h.Roots, 1)
	assert.Equal(t, 2, h.Len())
	assert.False(t, h.Roots[0].Children[0].HasBounds)
}

func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "<hierarchy><node", "<html></html>", "ERROR: null root node returned by UiTestAutomationBridge."} {
		_, err := Parse(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestWalkSkipsSubtree(t *testing.T) {
	h := mustParse(t, launcherXML)
	var classes []string
	h.Walk(func(n *Node) bool {
		classes = append(classes, n.Class)
		return n.Text != "Settings"
	})
	// The ImageView under Settings is pruned.
	assert.NotContains(t, classes, "android.widget.ImageView")
	assert.Len(t, classes, 6)
}

func TestFindByBoundsAndInteractive(t *testing.T) {
	h := mustParse(t, launcherXML)

	found := h.FindByBounds(Bounds{100, 200, 300, 400})
	require.Len(t, found, 1)
	assert.True(t, found[0].Interactive())
	assert.Equal(t, "element with text 'Settings'", found[0].Describe())

	icon := h.FindByBounds(Bounds{150, 210, 250, 310})
	require.Len(t, icon, 1)
	assert.True(t, icon[0].Interactive(), "child of a clickable element is reachable")

	deco := h.FindByBounds(Bounds{700, 200, 900, 400})
	require.Len(t, deco, 1)
	assert.False(t, deco[0].Interactive())

	assert.Empty(t, h.FindByBounds(Bounds{1, 2, 3, 4}))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "element with description 'Back'", (&Node{ContentDesc: "Back"}).Describe())
	assert.Equal(t, "element android:id/ok", (&Node{ResourceID: "android:id/ok"}).Describe())
	assert.Equal(t, "element with bounds [0,0][1,1]", (&Node{RawBounds: "[0,0][1,1]"}).Describe())
}

// -- Observation --

func TestNewObservation(t *testing.T) {
	now := time.Now()
	obs := NewObservation([]byte{0x89, 'P', 'N', 'G'}, launcherXML, Size{1080, 2400}, now)
	require.NotNil(t, obs.Hierarchy)
	assert.NoError(t, obs.ParseErr)
	assert.Equal(t, 7, obs.Hierarchy.Len())

	broken := NewObservation(nil, "garbage", Size{}, now)
	require.NotNil(t, broken.Hierarchy)
	assert.Error(t, broken.ParseErr)
	assert.Equal(t, 0, broken.Hierarchy.Len())
}

// -- Fingerprint --

func TestFingerprint_StableAcrossVolatileFields(t *testing.T) {
	a := NewObservation([]byte("pixels-a"), launcherXML, Size{1080, 2400}, time.Now())

	// Different pixels, clock, focus, selection and sibling index.
	variant := strings.NewReplacer(
		`text="12:45"`, `text="12:46"`,
		`focused="true"`, `focused="false"`,
		`index="2"`, `index="7"`,
	).Replace(launcherXML)
	variant = strings.Replace(variant, `selected="false" bounds="[700,200]`, `selected="true" bounds="[700,200]`, 1)
	b := NewObservation([]byte("pixels-b"), variant, Size{1080, 2400}, time.Now().Add(time.Minute))

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_CollapsesDigitRuns(t *testing.T) {
	one := `<hierarchy><node class="t" package="app" text="3 unread" bounds="[0,0][10,10]"/></hierarchy>`
	two := `<hierarchy><node class="t" package="app" text="17 unread" bounds="[0,0][10,10]"/></hierarchy>`
	fp := NewFingerprinter(nil)
	assert.Equal(t, fp.Fingerprint(mustParse(t, one)), fp.Fingerprint(mustParse(t, two)))
}

func TestFingerprint_Discriminates(t *testing.T) {
	base := NewObservation(nil, launcherXML, Size{}, time.Now())

	cases := map[string]string{
		"text changed":     strings.Replace(launcherXML, `text="Camera"`, `text="Gallery"`, 1),
		"bounds changed":   strings.Replace(launcherXML, `[400,200][600,400]`, `[400,500][600,700]`, 1),
		"class changed":    strings.Replace(launcherXML, `class="android.view.View"`, `class="android.widget.Button"`, 1),
		"clickable toggle": strings.Replace(launcherXML, `clickable="false" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false" bounds="[700,200]`, `clickable="true" enabled="true" focusable="false" focused="false" scrollable="false" long-clickable="false" password="false" selected="false" bounds="[700,200]`, 1),
	}
	for name, xml := range cases {
		t.Run(name, func(t *testing.T) {
			other := NewObservation(nil, xml, Size{}, time.Now())
			assert.NotEqual(t, Fingerprint(base), Fingerprint(other))
		})
	}

	t.Run("element removed", func(t *testing.T) {
		h := mustParse(t, launcherXML)
		ws := h.Roots[1]
		ws.Children = ws.Children[:2]
		assert.NotEqual(t, Fingerprint(base), NewFingerprinter(DefaultVolatilePackages).Fingerprint(h))
	})
}

func TestFingerprint_VolatilePackages(t *testing.T) {
	withBar := mustParse(t, launcherXML)
	withoutBar := mustParse(t, launcherXML)
	withoutBar.Roots = withoutBar.Roots[1:]

	def := NewFingerprinter(DefaultVolatilePackages)
	assert.Equal(t, def.Fingerprint(withBar), def.Fingerprint(withoutBar))

	strict := NewFingerprinter(nil)
	assert.NotEqual(t, strict.Fingerprint(withBar), strict.Fingerprint(withoutBar))
}

func TestFingerprint_DegenerateInput(t *testing.T) {
	assert.Equal(t, EmptyIdentity, Fingerprint(nil))
	assert.Equal(t, EmptyIdentity, Fingerprint(NewObservation(nil, "", Size{}, time.Time{})))
	assert.Equal(t, EmptyIdentity, Fingerprint(NewObservation(nil, "<<<", Size{}, time.Time{})))
	assert.Equal(t, EmptyIdentity, NewFingerprinter(nil).Fingerprint(nil))
	assert.Len(t, string(EmptyIdentity), 64)
	assert.Equal(t, string(EmptyIdentity[:12]), EmptyIdentity.Short())
}

func TestParse_TreeShape(t *testing.T) {
	h := mustParse(t, `<hierarchy rotation="1"><node class="a" text="x"><node class="b"/></node></hierarchy>`)
	type shape struct {
		Class string
		Depth int
		Kids  int
	}
	var got []shape
	h.Walk(func(n *Node) bool {
		got = append(got, shape{n.Class, n.Depth, len(n.Children)})
		return true
	})
	want := []shape{{"a", 0, 1}, {"b", 1, 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree shape mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, h.Rotation)
}
