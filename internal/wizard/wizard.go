// Package wizard is the deployment wizard's step state machine.
//
// Steps advance Template → Configure → Deploying → Done. The only
// regressions are Configure → Template (user back) and Deploying → Configure
// (deployment failure). Reset returns to Template from anywhere.
package wizard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"odoodeploy.io/console/internal/availability"
	"odoodeploy.io/console/internal/progress"
	"odoodeploy.io/console/internal/validation"
)

// Step is a wizard step.
type Step string

const (
	StepTemplate  Step = "template"
	StepConfigure Step = "configure"
	StepDeploying Step = "deploying"
	StepDone      Step = "done"
)

// MessageSelectTemplate is the blocking warning shown when Next is pressed
// without a template.
const MessageSelectTemplate = "Please select a template to continue"

var (
	ErrNoTemplateSelected = errors.New("no template selected")
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrValidationFailed   = errors.New("form has invalid fields")
	ErrNameUnavailable    = errors.New("instance name is not confirmed available")
)

// Fields are the Configure step inputs.
type Fields struct {
	InstanceName  string `json:"instance_name"`
	Email         string `json:"email"`
	Password      string `json:"-"`
	IncludeAddons bool   `json:"include_addons"`
}

// FieldPatch updates a subset of Fields. Nil members are left unchanged.
type FieldPatch struct {
	InstanceName  *string `json:"instance_name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Password      *string `json:"password,omitempty"`
	IncludeAddons *bool   `json:"include_addons,omitempty"`
}

// Validation holds the per-field results. Fields the user has not touched
// yet are reported valid so the form does not open covered in errors.
type Validation struct {
	InstanceName validation.Result `json:"instance_name"`
	Email        validation.Result `json:"email"`
	Password     validation.Result `json:"password"`
}

// AllValid reports whether every field passed.
func (v Validation) AllValid() bool {
	return v.InstanceName.Valid && v.Email.Valid && v.Password.Valid
}

func pristineValidation() Validation {
	return Validation{InstanceName: validation.OK(), Email: validation.OK(), Password: validation.OK()}
}

// Validate runs all three validators over f.
func Validate(f Fields) Validation {
	return Validation{
		InstanceName: validation.InstanceName(f.InstanceName),
		Email:        validation.Email(f.Email),
		Password:     validation.Password(f.Password),
	}
}

// ValidationError is returned by BeginDeploy when a field is invalid.
type ValidationError struct {
	Validation Validation
}

func (e *ValidationError) Error() string { return ErrValidationFailed.Error() }

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// DeployRequest is what BeginDeploy hands to the orchestrator.
type DeployRequest struct {
	TemplateID string
	Fields     Fields
}

// View is a read-only copy of a session.
type View struct {
	ID           string             `json:"id"`
	Step         Step               `json:"step"`
	TemplateID   string             `json:"template_id,omitempty"`
	Fields       Fields             `json:"fields"`
	Validation   Validation         `json:"validation"`
	Availability availability.State `json:"availability"`
	Progress     progress.Snapshot  `json:"progress"`
	Warning      string             `json:"warning,omitempty"`
	Error        string             `json:"error,omitempty"`
	InstanceURL  string             `json:"instance_url,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Session is one wizard's state. It is safe for concurrent use.
type Session struct {
	id    string
	clock clock.PassiveClock

	mu           sync.Mutex
	step         Step
	templateID   string
	fields       Fields
	validation   Validation
	availability availability.State
	progress     progress.Snapshot
	warning      string
	deployError  string
	instanceURL  string
	updatedAt    time.Time
}

// NewSession creates a session on the Template step. A nil clock uses the
// wall clock.
func NewSession(id string, clk clock.PassiveClock) *Session {
	if clk == nil {
		clk = clock.RealClock{}
	}
	s := &Session{id: id, clock: clk}
	s.resetLocked()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.progress
	snap.Stages = append([]progress.StageState(nil), s.progress.Stages...)
	return View{
		ID:           s.id,
		Step:         s.step,
		TemplateID:   s.templateID,
		Fields:       s.fields,
		Validation:   s.validation,
		Availability: s.availability,
		Progress:     snap,
		Warning:      s.warning,
		Error:        s.deployError,
		InstanceURL:  s.instanceURL,
		UpdatedAt:    s.updatedAt,
	}
}

// SelectTemplate picks the template to deploy. Only valid on Template.
func (s *Session) SelectTemplate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepTemplate {
		return s.invalid("select template")
	}
	s.templateID = id
	if id != "" {
		s.warning = ""
	}
	s.touchLocked()
	return nil
}

// Next advances Template → Configure. Without a template it sets the
// blocking warning and returns ErrNoTemplateSelected.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepTemplate {
		return s.invalid("next")
	}
	if s.templateID == "" {
		s.warning = MessageSelectTemplate
		s.touchLocked()
		return ErrNoTemplateSelected
	}
	s.warning = ""
	s.step = StepConfigure
	s.touchLocked()
	return nil
}

// Back returns Configure → Template. Fields are kept.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepConfigure {
		return s.invalid("back")
	}
	s.step = StepTemplate
	s.touchLocked()
	return nil
}

// UpdateFields applies patch on the Configure step and re-validates the
// changed fields. It reports whether the instance name changed, in which
// case the availability verdict is reset until a new check completes.
func (s *Session) UpdateFields(patch FieldPatch) (nameChanged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepConfigure {
		return false, s.invalid("update fields")
	}
	if patch.InstanceName != nil {
		nameChanged = *patch.InstanceName != s.fields.InstanceName
		s.fields.InstanceName = *patch.InstanceName
		s.validation.InstanceName = validation.InstanceName(s.fields.InstanceName)
	}
	if patch.Email != nil {
		s.fields.Email = *patch.Email
		s.validation.Email = validation.Email(s.fields.Email)
	}
	if patch.Password != nil {
		s.fields.Password = *patch.Password
		s.validation.Password = validation.Password(s.fields.Password)
	}
	if patch.IncludeAddons != nil {
		s.fields.IncludeAddons = *patch.IncludeAddons
	}
	if nameChanged {
		s.availability = availability.State{Name: s.fields.InstanceName, Verdict: availability.VerdictPending}
	}
	s.deployError = ""
	s.touchLocked()
	return nameChanged, nil
}

// SetAvailability records a checker result. Results for a name other than
// the current one are ignored.
func (s *Session) SetAvailability(st availability.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Name != s.fields.InstanceName {
		return
	}
	s.availability = st
	s.touchLocked()
}

// BeginDeploy moves Configure → Deploying after re-running every validator
// and confirming the remote availability verdict for the current name.
func (s *Session) BeginDeploy() (DeployRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepConfigure {
		return DeployRequest{}, s.invalid("deploy")
	}

	s.validation = Validate(s.fields)
	if !s.validation.AllValid() {
		s.touchLocked()
		return DeployRequest{}, &ValidationError{Validation: s.validation}
	}
	if s.availability.Name != s.fields.InstanceName || s.availability.Verdict != availability.VerdictAvailable {
		return DeployRequest{}, ErrNameUnavailable
	}

	s.step = StepDeploying
	s.progress = progress.Initial()
	s.deployError = ""
	s.touchLocked()
	return DeployRequest{TemplateID: s.templateID, Fields: s.fields}, nil
}

// SetProgress records an animation snapshot while Deploying. Snapshots that
// would move progress backwards are ignored.
func (s *Session) SetProgress(snap progress.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDeploying || snap.Percent < s.progress.Percent {
		return
	}
	s.progress = snap
	s.touchLocked()
}

// CompleteDeploy moves Deploying → Done.
func (s *Session) CompleteDeploy(instanceURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDeploying {
		return s.invalid("complete deploy")
	}
	s.step = StepDone
	s.instanceURL = instanceURL
	s.progress = progress.At(1)
	s.touchLocked()
	return nil
}

// FailDeploy moves Deploying → Configure and surfaces msg. Progress is
// discarded.
func (s *Session) FailDeploy(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepDeploying {
		return s.invalid("fail deploy")
	}
	s.step = StepConfigure
	s.deployError = msg
	s.progress = progress.Initial()
	s.touchLocked()
	return nil
}

// Reset returns to Template with empty fields.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.step = StepTemplate
	s.templateID = ""
	s.fields = Fields{}
	s.validation = pristineValidation()
	s.availability = availability.State{}
	s.progress = progress.Initial()
	s.warning = ""
	s.deployError = ""
	s.instanceURL = ""
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.updatedAt = s.clock.Now()
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, s.step)
}
