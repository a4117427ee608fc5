package interview

import (
	"reflect"
	"strings"
	"testing"

	"github.com/talentspotify/tara-review/internal/transcript"
)

func TestTransitionWhoAffirmative(t *testing.T) {
	state, reply := Transition(NewState(), "yes, both of us are here")

	if state.Step != StepEmployeeName {
		t.Fatalf("expected step %q, got %q", StepEmployeeName, state.Step)
	}
	if !strings.Contains(strings.ToLower(reply), "employee's name") {
		t.Fatalf("expected reply to ask for the employee's name, got %q", reply)
	}
}

func TestTransitionWhoNegativeStays(t *testing.T) {
	state, reply := Transition(NewState(), "no, not yet")

	if state.Step != StepWho {
		t.Fatalf("expected to stay at %q, got %q", StepWho, state.Step)
	}
	if reply == "" {
		t.Fatal("expected a re-prompt reply")
	}
}

func TestTransitionWhoUnknownCountsAsYes(t *testing.T) {
	state, _ := Transition(NewState(), "hello there")
	if state.Step != StepEmployeeName {
		t.Fatalf("expected unknown answer to advance, got %q", state.Step)
	}
}

func runSetup(t *testing.T, inputs ...string) (State, string) {
	t.Helper()
	state := NewState()
	var reply string
	for _, input := range inputs {
		state, reply = Transition(state, input)
	}
	return state, reply
}

func TestSetupCollectsDraft(t *testing.T) {
	state, reply := runSetup(t,
		"yes",
		"my name is alice",
		"my id is e123",
		"this is bob",
		"m456",
	)

	if state.Step != StepConfirm {
		t.Fatalf("expected step %q, got %q", StepConfirm, state.Step)
	}
	want := Draft{EmployeeName: "Alice", EmployeeID: "E123", ManagerName: "Bob", ManagerID: "M456"}
	if state.Draft != want {
		t.Fatalf("expected draft %+v, got %+v", want, state.Draft)
	}
	if !strings.Contains(reply, "Alice") || !strings.Contains(reply, "E123") {
		t.Fatalf("expected confirmation to echo collected fields, got %q", reply)
	}
}

func TestConfirmCorrectionsLoop(t *testing.T) {
	state, _ := runSetup(t, "yes", "alice", "e123", "bob", "m456")

	state, reply := Transition(state, "employee id: E999, manager name: dana")
	if state.Step != StepConfirm {
		t.Fatalf("expected to stay at confirm, got %q", state.Step)
	}
	if state.Draft.EmployeeID != "E999" {
		t.Fatalf("expected corrected employee id, got %q", state.Draft.EmployeeID)
	}
	if state.Draft.ManagerName != "Dana" {
		t.Fatalf("expected corrected manager name, got %q", state.Draft.ManagerName)
	}
	if state.Draft.EmployeeName != "Alice" {
		t.Fatalf("expected uncorrected field preserved, got %q", state.Draft.EmployeeName)
	}
	if !strings.Contains(reply, "E999") {
		t.Fatalf("expected refreshed confirmation, got %q", reply)
	}
}

func TestConfirmAcceptFinalizes(t *testing.T) {
	state, reply := runSetup(t, "yes", "alice", "e123", "bob", "m456", "yes that's correct")

	if state.Step != StepComplete {
		t.Fatalf("expected step %q, got %q", StepComplete, state.Step)
	}
	if state.Stage != StageEmployee {
		t.Fatalf("expected stage %q, got %q", StageEmployee, state.Stage)
	}
	if len(state.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(state.Participants))
	}

	employee := state.ParticipantByRole(transcript.RoleEmployee)
	if employee.Name != "Alice" || employee.ID != "E123" {
		t.Fatalf("unexpected employee %+v", employee)
	}
	manager := state.ParticipantByRole(transcript.RoleManager)
	if manager.Name != "Bob" || manager.ID != "M456" {
		t.Fatalf("unexpected manager %+v", manager)
	}
	if !strings.Contains(reply, "Alice") || !strings.Contains(reply, "self-assessment") {
		t.Fatalf("expected transition into the employee stage, got %q", reply)
	}
}

func TestReviewStagesAdvance(t *testing.T) {
	state, _ := runSetup(t, "yes", "alice", "e123", "bob", "m456", "yes")

	state, reply := Transition(state, "I led the migration and mentored two juniors.")
	if state.Stage != StageManager {
		t.Fatalf("expected stage %q, got %q", StageManager, state.Stage)
	}
	if !strings.Contains(reply, "Alice") || !strings.Contains(reply, "Bob") {
		t.Fatalf("expected handoff naming both participants, got %q", reply)
	}

	state, reply = Transition(state, "Alice exceeded expectations this cycle.")
	if state.Stage != StageSummary {
		t.Fatalf("expected stage %q, got %q", StageSummary, state.Stage)
	}
	if !state.Terminal() {
		t.Fatal("expected summary stage to be terminal")
	}
	if reply == "" {
		t.Fatal("expected a closing reply")
	}

	// Terminal stage keeps answering with the generic facilitation reply.
	next, reply := Transition(state, "anything else?")
	if next.Stage != StageSummary {
		t.Fatalf("expected terminal stage to hold, got %q", next.Stage)
	}
	if reply != facilitateReply {
		t.Fatalf("expected generic facilitation reply, got %q", reply)
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	original := NewState()
	snapshot := original

	Transition(original, "yes")
	if !reflect.DeepEqual(original, snapshot) {
		t.Fatalf("expected input state untouched, got %+v", original)
	}
}

func TestDefaultRole(t *testing.T) {
	cases := []struct {
		state State
		want  transcript.Role
	}{
		{State{Step: StepEmployeeName, Stage: StageSetup}, transcript.RoleEmployee},
		{State{Step: StepEmployeeID, Stage: StageSetup}, transcript.RoleEmployee},
		{State{Step: StepManagerName, Stage: StageSetup}, transcript.RoleManager},
		{State{Step: StepManagerID, Stage: StageSetup}, transcript.RoleManager},
		{State{Step: StepComplete, Stage: StageEmployee}, transcript.RoleEmployee},
		{State{Step: StepComplete, Stage: StageManager}, transcript.RoleManager},
		{State{Step: StepWho, Stage: StageSetup}, transcript.ParticipantRole("0")},
		{State{Step: StepComplete, Stage: StageSummary}, transcript.ParticipantRole("0")},
	}

	for _, tc := range cases {
		if got := tc.state.DefaultRole(); got != tc.want {
			t.Errorf("DefaultRole(step=%s stage=%s) = %q, want %q", tc.state.Step, tc.state.Stage, got, tc.want)
		}
	}
}

func TestGreetingMentionsTara(t *testing.T) {
	if !strings.Contains(Greeting(), "Tara") {
		t.Fatalf("expected greeting to introduce Tara, got %q", Greeting())
	}
}
