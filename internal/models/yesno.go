// internal/models/yesno.go
package models

import "strings"

// YesNo is a boolean-like wire field. The store holds the literal strings
// "YES"/"NO"; an empty value means unset.
type YesNo string

const (
	Yes YesNo = "YES"
	No  YesNo = "NO"
)

// ParseYesNo trims and upper-cases s, folding common synonyms onto YES/NO.
// Values outside the vocabulary are kept upper-cased.
func ParseYesNo(s string) YesNo {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "YES", "Y", "TRUE", "1", "OUI":
		return Yes
	case "NO", "N", "FALSE", "0", "NON":
		return No
	default:
		return YesNo(v)
	}
}

func (y YesNo) IsYes() bool { return y == Yes }

func (y YesNo) IsNo() bool { return y == No }

func (y YesNo) String() string { return string(y) }
