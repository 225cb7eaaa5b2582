// internal/models/stage.go
package models

import "strings"

// Pipeline stages, in progress order. Stage values on records are free-form;
// these are only the reference list used for progress display.
const (
	StagePaymentAndMail = "PAYMENT & MAIL"
	StageApplication    = "APPLICATION"
	StageScanAndSend    = "SCAN & SEND"
	StageAramexAndRDV   = "ARAMEX & RDV"
	StageDS160          = "DS-160"
	StageInterviewPrep  = "ITW Prep."
	StageSEVIS          = "SEVIS"
	StageClients        = "CLIENTS"
)

// Stages is the ordered reference list.
var Stages = []string{
	StagePaymentAndMail,
	StageApplication,
	StageScanAndSend,
	StageAramexAndRDV,
	StageDS160,
	StageInterviewPrep,
	StageSEVIS,
	StageClients,
}

// StageIndex returns the position of stage in ref, or 0 when unrecognized.
// The comparison is case-sensitive.
func StageIndex(stage string, ref []string) int {
	for i, s := range ref {
		if s == stage {
			return i
		}
	}
	return 0
}

// ProgressFraction maps a stage to (index+1)/len(ref), so the result is in
// (0,1] for any non-empty reference list.
func ProgressFraction(stage string, ref []string) float64 {
	if len(ref) == 0 {
		return 0
	}
	return float64(StageIndex(stage, ref)+1) / float64(len(ref))
}

// IsTerminalStage reports CLIENT/CLIENTS ignoring case and surrounding space.
func IsTerminalStage(stage string) bool {
	s := strings.ToUpper(strings.TrimSpace(stage))
	return s == "CLIENT" || s == "CLIENTS"
}

// Visa result vocabulary.
const (
	VisaApproved         = "Approved"
	VisaDenied           = "Denied"
	VisaNotSchoolPartner = "Not our school partner"
	VisaUnknown          = "Unknown"
)

// VisaStatusLabel maps a raw visa result to its display label.
func VisaStatusLabel(raw string) string {
	switch raw {
	case VisaDenied, VisaApproved, VisaNotSchoolPartner:
		return raw
	default:
		return VisaUnknown
	}
}

// Attempt values.
const (
	FirstTry  = "1st Try"
	SecondTry = "2nd Try"
	ThirdTry  = "3rd Try"
)
