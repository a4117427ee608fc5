// Package extract pulls names, ids, and yes/no intent out of free-text
// utterances with ordered keyword heuristics. Extraction never fails: an
// unmatchable input degrades to the documented default.
package extract

import (
	"regexp"
	"strings"

	"github.com/talentspotify/tara-review/internal/transcript"
)

// YesNo is the coarse intent of a confirmation answer.
type YesNo int

const (
	Unknown YesNo = iota
	Yes
	No
)

var yesWords = map[string]bool{
	"yes": true, "both": true, "present": true, "here": true, "ready": true,
}

var noWords = map[string]bool{
	"no": true, "not": true,
}

// ExtractYesNo classifies text as an affirmative or negative answer.
// Affirmative keywords win over negative ones, so "yes, not a problem"
// counts as Yes. Unknown leaves the decision to the caller.
func ExtractYesNo(text string) YesNo {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(lowered, "we are") {
		return Yes
	}

	for _, word := range strings.Fields(lowered) {
		word = strings.Trim(word, ".,!?'\"")
		if yesWords[word] {
			return Yes
		}
	}
	for _, word := range strings.Fields(lowered) {
		word = strings.Trim(word, ".,!?'\"")
		if noWords[word] {
			return No
		}
	}
	return Unknown
}

var nameFillers = []string{"the ", "my name is ", "i am ", "this is "}

// ExtractName strips leading filler phrases and capitalizes the result.
// Empty or placeholder input returns fallback ("Employee" or "Manager").
func ExtractName(text, fallback string) string {
	name := strings.ToLower(strings.TrimSpace(text))
	for _, filler := range nameFillers {
		if strings.HasPrefix(name, filler) {
			name = strings.TrimSpace(strings.TrimPrefix(name, filler))
		}
	}
	name = strings.Trim(name, ".,!?")

	if name == "" || transcript.IsPlaceholder(name) {
		return fallback
	}
	return Capitalize(name)
}

var idFillers = []string{"my id is ", "id is ", "it is "}

// ExtractID strips leading filler phrases and uppercases the remainder.
func ExtractID(text string) string {
	id := strings.ToLower(strings.TrimSpace(text))
	for _, filler := range idFillers {
		if strings.HasPrefix(id, filler) {
			id = strings.TrimSpace(strings.TrimPrefix(id, filler))
		}
	}
	id = strings.Trim(id, ".,!?")
	return strings.ToUpper(id)
}

// Corrections holds the fields a Confirm-step utterance asked to change.
// Empty fields mean no correction was requested for that field.
type Corrections struct {
	EmployeeName string
	EmployeeID   string
	ManagerName  string
	ManagerID    string
}

// Empty reports whether no correction was found.
func (c Corrections) Empty() bool {
	return c == Corrections{}
}

var correctionPattern = regexp.MustCompile(`(?i)(employee name|employee id|manager name|manager id)\s*:\s*([^,]+)`)

// ExtractCorrections scans for "label: value" patterns for the four known
// fields. Values run to the next comma or end of string.
func ExtractCorrections(text string) Corrections {
	var c Corrections
	for _, match := range correctionPattern.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(match[2])
		if value == "" {
			continue
		}
		switch strings.ToLower(match[1]) {
		case "employee name":
			c.EmployeeName = Capitalize(strings.ToLower(value))
		case "employee id":
			c.EmployeeID = strings.ToUpper(value)
		case "manager name":
			c.ManagerName = Capitalize(strings.ToLower(value))
		case "manager id":
			c.ManagerID = strings.ToUpper(value)
		}
	}
	return c
}

// Capitalize upper-cases the first letter of s, leaving the rest untouched.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
