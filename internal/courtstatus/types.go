// Package courtstatus derives the live status of a court from its daily
// reservations and keeps that status fresh by polling.
package courtstatus

import (
	"bytes"
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type FacilityStatus string

const (
	FacilityOpen      FacilityStatus = "open"
	FacilityClosed    FacilityStatus = "closed"
	FacilityAvailable FacilityStatus = "available"
)

// BusinessHours is the half-open operating interval [Open, Close) in whole hours.
type BusinessHours struct {
	Open  int `yaml:"open_hour"`
	Close int `yaml:"close_hour"`
}

var DefaultBusinessHours = BusinessHours{Open: 5, Close: 22}

func (h BusinessHours) Contains(hour int) bool {
	return h.Open <= hour && hour < h.Close
}

type PlayerInfo struct {
	Name        string `json:"name"`
	IsGuest     bool   `json:"isGuest"`
	Initials    string `json:"initials"`
	AvatarColor string `json:"avatarColor"`
	TextColor   string `json:"textColor"`
}

type BlockInfo struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type SlotInfo struct {
	Exists        bool         `json:"exists"`
	ReservationID string       `json:"reservationId,omitempty"`
	TimeRange     string       `json:"timeRange"`
	Players       []PlayerInfo `json:"players"`
	IsBlocked     bool         `json:"isBlocked"`
	BlockInfo     *BlockInfo   `json:"blockInfo,omitempty"`
}

type DerivedStatus struct {
	Current                 SlotInfo       `json:"current"`
	Next                    SlotInfo       `json:"next"`
	FacilityStatus          FacilityStatus `json:"facilityStatus"`
	HasAnyReservationsToday bool           `json:"hasAnyReservationsToday"`
	LastUpdated             time.Time      `json:"lastUpdated"`
	Error                   string         `json:"error,omitempty"`
}

// Fingerprint encodes everything except LastUpdated, so two derivations of the
// same court state compare equal regardless of when they ran.
func (s DerivedStatus) Fingerprint() ([]byte, error) {
	s.LastUpdated = time.Time{}
	return msgpack.Marshal(s)
}

func (s DerivedStatus) Equal(other DerivedStatus) bool {
	a, errA := s.Fingerprint()
	b, errB := other.Fingerprint()
	if errA != nil || errB != nil {
		s.LastUpdated = time.Time{}
		other.LastUpdated = time.Time{}
		return reflect.DeepEqual(s, other)
	}
	return bytes.Equal(a, b)
}
