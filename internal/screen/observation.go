// File: internal/screen/observation.go
package screen

import "time"

// Observation is one capture of the device: pixels plus structure.
// It lives only as long as the step that produced it.
type Observation struct {
	Screenshot     []byte
	ScreenshotPath string
	RawXML         string
	// Hierarchy is never nil; an unreadable dump yields an empty tree and ParseErr.
	Hierarchy  *Hierarchy
	ParseErr   error
	Size       Size
	CapturedAt time.Time
}

// NewObservation parses rawXML and assembles an Observation.
func NewObservation(screenshot []byte, rawXML string, size Size, capturedAt time.Time) *Observation {
	obs := &Observation{
		Screenshot: screenshot,
		RawXML:     rawXML,
		Size:       size,
		CapturedAt: capturedAt,
	}
	h, err := Parse(rawXML)
	if err != nil {
		h = &Hierarchy{}
		obs.ParseErr = err
	}
	obs.Hierarchy = h
	return obs
}
