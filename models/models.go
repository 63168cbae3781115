package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Report statuses. A report starts as New and is moved through the
// remaining statuses by the government dashboard.
const (
	StatusNew        = "New"
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusFalseAlarm = "False Alarm"
)

// IsValidStatus reports whether s is one of the known report statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusPending, StatusInProgress, StatusResolved, StatusFalseAlarm:
		return true
	}
	return false
}

// CriticalPriorityThreshold separates the Immediate tier from the Logged
// tier. Reports strictly above it count as critical in stats.
const CriticalPriorityThreshold = 80.0

const (
	TierImmediate = "Immediate"
	TierLogged    = "Logged"
)

// PriorityTier derives the dispatch tier from the priority index.
func PriorityTier(priority float64) string {
	if priority > CriticalPriorityThreshold {
		return TierImmediate
	}
	return TierLogged
}

// Defaults used when an oracle response is missing fields.
const (
	DefaultDefectType = "Unknown"
	DefaultDepartment = "General"
)

// FormatReportID renders the sequence number as a report id, e.g. R001.
// Sequence numbers are never reused, so ids stay stable for the lifetime
// of the store.
func FormatReportID(seq int64) string {
	return fmt.Sprintf("R%03d", seq)
}

// ParseReportID extracts the sequence number from a report id.
func ParseReportID(id string) (int64, error) {
	if !strings.HasPrefix(id, "R") {
		return 0, fmt.Errorf("malformed report id %q", id)
	}
	seq, err := strconv.ParseInt(id[1:], 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("malformed report id %q", id)
	}
	return seq, nil
}

// Classification is the vision oracle result, decoded at the oracle
// boundary. Missing fields carry their zero value; IsRelevant defaults
// to true when the oracle omits the flag.
type Classification struct {
	IsRelevant    bool   `json:"is_relevant"`
	DefectType    string `json:"defect_type"`
	SeverityScore int    `json:"severity_score"`
	Description   string `json:"description"`
	Material      string `json:"estimated_material_needed"`
}

// Prioritization is the planner oracle result.
type Prioritization struct {
	PriorityIndex float64 `json:"priority_index"`
	Justification string  `json:"justification"`
	Department    string  `json:"assigned_department"`
}

// ReportDraft carries everything the triage pipeline hands to the store.
type ReportDraft struct {
	Latitude       float64
	Longitude      float64
	Classification *Classification
	Prioritization *Prioritization
	Reporter       string
	LocationName   string
	UserNotes      string
}

// Report is the stored report record. Immutable once created except for
// Status, which the store mutates through UpdateStatus.
type Report struct {
	ID            string    `json:"id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	DefectType    string    `json:"defect_type"`
	SeverityScore int       `json:"severity_score"`
	Description   string    `json:"description"`
	Material      string    `json:"estimated_material_needed"`
	PriorityIndex float64   `json:"priority_index"`
	Department    string    `json:"assigned_department"`
	Justification string    `json:"justification"`
	LocationName  string    `json:"location_name,omitempty"`
	UserNotes     string    `json:"user_notes,omitempty"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Reporter      string    `json:"reporter_id"`
}

// NewReport builds a Report from a draft, filling neutral defaults for
// missing classification and prioritization fields. Status is always New.
func NewReport(id string, ts time.Time, d *ReportDraft) Report {
	cls := d.Classification
	if cls == nil {
		cls = &Classification{}
	}
	pri := d.Prioritization
	if pri == nil {
		pri = &Prioritization{}
	}

	r := Report{
		ID:            id,
		Latitude:      d.Latitude,
		Longitude:     d.Longitude,
		DefectType:    cls.DefectType,
		SeverityScore: cls.SeverityScore,
		Description:   cls.Description,
		Material:      cls.Material,
		PriorityIndex: pri.PriorityIndex,
		Department:    pri.Department,
		Justification: pri.Justification,
		LocationName:  d.LocationName,
		UserNotes:     d.UserNotes,
		Status:        StatusNew,
		Timestamp:     ts,
		Reporter:      d.Reporter,
	}
	if r.DefectType == "" {
		r.DefectType = DefaultDefectType
	}
	if r.Department == "" {
		r.Department = DefaultDepartment
	}
	return r
}
