// Package model contains domain models passed between layers.
package model

import "strings"

// Punch represents one timing-device reading reported by a punch source.
// ID is source-defined: the ROC feed assigns globally increasing integers,
// the OLA database builds a composite key per split time row.
type Punch struct {
	ID          string
	ControlCode string
	CardNumber  string
	PassedTime  string
	Modified    string

	// Pre-joined identity data. Only database-backed sources fill these;
	// PreJoined tells the enrichment stage they are trustworthy.
	BibNumber string
	RelayLeg  string
	PreJoined bool
}

// TimeOfDay returns the displayable time-of-day component of PassedTime.
// The OLA database reports "YYYY-MM-DD hh:mm:ss"; the ROC feed reports
// a bare "hh:mm:ss". Either way the trailing token is what is shown.
func (p Punch) TimeOfDay() string {
	if i := strings.LastIndexByte(p.PassedTime, ' '); i >= 0 {
		return p.PassedTime[i+1:]
	}
	return p.PassedTime
}

// PreWarning is the normalized record handed to the display and
// announcement stages. Unknown fields are empty and rendered as "-".
type PreWarning struct {
	TimeOfDay string
	Bib       string
	Leg       string
}

// Announcement is one queued audio request. An empty Language selects the
// configured default language at playback time.
type Announcement struct {
	Language string
	SoundKey string
}

// Display substitutes "-" for values the roster could not provide.
func Display(val string) string {
	if val == "" {
		return "-"
	}
	return val
}
