// Package interview holds the deterministic review state machine: given the
// current state and one attributed utterance, it produces the facilitator's
// next reply and the next state. Transition is pure; the orchestrator owns
// the state and is the only caller that applies the result.
package interview

import (
	"fmt"
	"strings"

	"github.com/talentspotify/tara-review/internal/extract"
	"github.com/talentspotify/tara-review/internal/transcript"
)

// SetupStep is the participant-identification phase position. Steps only
// advance forward, except Confirm which loops on corrections.
type SetupStep string

const (
	StepWho          SetupStep = "who"
	StepEmployeeName SetupStep = "employee_name"
	StepEmployeeID   SetupStep = "employee_id"
	StepManagerName  SetupStep = "manager_name"
	StepManagerID    SetupStep = "manager_id"
	StepConfirm      SetupStep = "confirm"
	StepComplete     SetupStep = "complete"
)

// Stage is the outer review phase. Summary is terminal.
type Stage string

const (
	StageSetup    Stage = "setup"
	StageIntro    Stage = "intro"
	StageEmployee Stage = "employee"
	StageManager  Stage = "manager"
	StageSummary  Stage = "summary"
)

// Participant is one confirmed review participant. The slice is empty until
// the Confirm step is accepted, then holds exactly two immutable entries.
type Participant struct {
	Name string          `json:"name"`
	ID   string          `json:"id,omitempty"`
	Role transcript.Role `json:"role"`
}

// Draft holds the participant fields collected during setup, before they are
// confirmed and frozen.
type Draft struct {
	EmployeeName string `json:"employee_name,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	ManagerName  string `json:"manager_name,omitempty"`
	ManagerID    string `json:"manager_id,omitempty"`
}

// State is the full interview position.
type State struct {
	Step         SetupStep     `json:"setup_step"`
	Stage        Stage         `json:"review_stage"`
	Participants []Participant `json:"participants"`
	Draft        Draft         `json:"draft"`
}

// NewState returns the initial state: identifying participants, no one
// confirmed yet.
func NewState() State {
	return State{Step: StepWho, Stage: StageSetup}
}

// Terminal reports whether the review has reached its final stage.
func (s State) Terminal() bool {
	return s.Stage == StageSummary
}

// ParticipantByRole returns the confirmed participant with the given role,
// or a named default when setup has not completed.
func (s State) ParticipantByRole(role transcript.Role) Participant {
	for _, p := range s.Participants {
		if p.Role == role {
			return p
		}
	}
	return Participant{Name: string(role), Role: role}
}

// Greeting is the facilitator's opening message, spoken before any user turn.
func Greeting() string {
	return "Hello! I'm Tara, your HR performance review assistant from TalentSpotify. " +
		"I'm here to facilitate a fair and structured three-way performance review. " +
		"First, let me know who is connected for this session. " +
		"Do you have an employee and a manager present?"
}

// Transition consumes one consolidated utterance and returns the next state
// plus the facilitator's reply. It never returns an empty reply and never
// mutates its input.
func Transition(s State, text string) (State, string) {
	if s.Stage == StageSetup {
		return setupTransition(s, text)
	}
	return reviewTransition(s)
}

func setupTransition(s State, text string) (State, string) {
	switch s.Step {
	case StepWho:
		// Unknown answers count as Yes: a turn was taken, assume readiness.
		if extract.ExtractYesNo(text) == extract.No {
			return s, "I'd like to know who is participating in this review. " +
				"Please tell me when you have an employee and a manager present."
		}
		s.Step = StepEmployeeName
		return s, "Great! I can see you have both participants. Let me get their information. " +
			"First, what is the employee's name?"

	case StepEmployeeName:
		s.Draft.EmployeeName = extract.ExtractName(text, "Employee")
		s.Step = StepEmployeeID
		return s, fmt.Sprintf("Thank you, %s. What is the employee's ID?", s.Draft.EmployeeName)

	case StepEmployeeID:
		s.Draft.EmployeeID = extract.ExtractID(text)
		s.Step = StepManagerName
		return s, "Got it. Now, what is the manager's name?"

	case StepManagerName:
		s.Draft.ManagerName = extract.ExtractName(text, "Manager")
		s.Step = StepManagerID
		return s, fmt.Sprintf("Thank you, %s. What is the manager's ID?", s.Draft.ManagerName)

	case StepManagerID:
		s.Draft.ManagerID = extract.ExtractID(text)
		s.Step = StepConfirm
		return s, confirmationSummary(s.Draft)

	case StepConfirm:
		if containsAny(text, "yes", "correct", "confirm") {
			return finalizeParticipants(s)
		}
		if c := extract.ExtractCorrections(text); !c.Empty() {
			s.Draft = applyCorrections(s.Draft, c)
		}
		return s, confirmationSummary(s.Draft)
	}

	// Complete while still in setup stage should not occur; fall through to
	// the generic facilitation reply.
	return s, facilitateReply
}

func reviewTransition(s State) (State, string) {
	employee := s.ParticipantByRole(transcript.RoleEmployee)
	manager := s.ParticipantByRole(transcript.RoleManager)

	switch s.Stage {
	case StageIntro:
		s.Stage = StageEmployee
		return s, "Thank you for joining this performance review. I'm Tara, your HR assistant. " +
			"Let's start with the employee's self-assessment. " +
			"Please share your key achievements and areas for growth."

	case StageEmployee:
		s.Stage = StageManager
		return s, fmt.Sprintf(
			"Excellent insights, %s. Now, let's hear from %s. "+
				"Please provide your perspective on %s's performance, strengths, and development opportunities.",
			employee.Name, manager.Name, employee.Name)

	case StageManager:
		s.Stage = StageSummary
		return s, "Thank you both for your thoughtful input. Based on this discussion, " +
			"I'll summarize the key points and we can align on development goals and next steps."
	}

	return s, facilitateReply
}

func finalizeParticipants(s State) (State, string) {
	employeeName := s.Draft.EmployeeName
	if employeeName == "" {
		employeeName = "Employee"
	}
	managerName := s.Draft.ManagerName
	if managerName == "" {
		managerName = "Manager"
	}

	s.Participants = []Participant{
		{Name: employeeName, ID: s.Draft.EmployeeID, Role: transcript.RoleEmployee},
		{Name: managerName, ID: s.Draft.ManagerID, Role: transcript.RoleManager},
	}
	s.Step = StepComplete
	s.Stage = StageEmployee

	return s, fmt.Sprintf(
		"Perfect! I have %s as the employee and %s as the manager. "+
			"Thank you both for joining this performance review. I'm Tara, your HR assistant. "+
			"Let's start with %s's self-assessment. Please share your key achievements and areas for growth.",
		employeeName, managerName, employeeName)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func confirmationSummary(d Draft) string {
	return fmt.Sprintf(
		"Let me confirm: I have %s (ID %s) as the employee and %s (ID %s) as the manager. "+
			"Is that correct? You can say yes, or correct a field, for example: employee id: E123.",
		orDefault(d.EmployeeName, "Employee"), orDefault(d.EmployeeID, "unknown"),
		orDefault(d.ManagerName, "Manager"), orDefault(d.ManagerID, "unknown"))
}

func applyCorrections(d Draft, c extract.Corrections) Draft {
	if c.EmployeeName != "" {
		d.EmployeeName = c.EmployeeName
	}
	if c.EmployeeID != "" {
		d.EmployeeID = c.EmployeeID
	}
	if c.ManagerName != "" {
		d.ManagerName = c.ManagerName
	}
	if c.ManagerID != "" {
		d.ManagerID = c.ManagerID
	}
	return d
}

const facilitateReply = "Let me help facilitate this conversation further. What would you like to discuss next?"

func containsAny(text string, words ...string) bool {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// DefaultRole derives the role typed or unattributed input should land on,
// based on where the interview currently is. Employee-facing steps and the
// employee stage default to Employee, manager-facing to Manager; anywhere
// else the input stays a generic participant.
func (s State) DefaultRole() transcript.Role {
	switch s.Step {
	case StepEmployeeName, StepEmployeeID:
		return transcript.RoleEmployee
	case StepManagerName, StepManagerID:
		return transcript.RoleManager
	}
	switch s.Stage {
	case StageEmployee:
		return transcript.RoleEmployee
	case StageManager:
		return transcript.RoleManager
	}
	return transcript.ParticipantRole("0")
}
