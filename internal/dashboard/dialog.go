package dashboard

import (
	"sync"

	apperrors "stocktracker/internal/errors"
)

// DialogState is the state of the alert-creation dialog.
type DialogState string

const (
	DialogClosed      DialogState = "closed"
	DialogOpenEditing DialogState = "open_editing"
)

// AlertDialog tracks one user's alert form. Submitting sets an in-flight
// flag that blocks resubmission until the save resolves. A successful save
// or a cancel closes the dialog; a failed save leaves it open for editing.
type AlertDialog struct {
	mu       sync.Mutex
	state    DialogState
	inFlight bool
}

// NewAlertDialog returns a closed dialog.
func NewAlertDialog() *AlertDialog {
	return &AlertDialog{state: DialogClosed}
}

// Open moves the dialog to open-editing. Opening an open dialog is a no-op.
func (d *AlertDialog) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DialogOpenEditing
}

// Cancel closes the dialog unless a save is in flight.
func (d *AlertDialog) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight {
		return apperrors.ErrSubmitInProgress
	}
	d.state = DialogClosed
	return nil
}

// BeginSubmit marks a save as in flight.
func (d *AlertDialog) BeginSubmit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DialogOpenEditing {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Alert dialog is not open")
	}
	if d.inFlight {
		return apperrors.ErrSubmitInProgress
	}
	d.inFlight = true
	return nil
}

// FinishSubmit clears the in-flight flag and closes the dialog when err is nil.
func (d *AlertDialog) FinishSubmit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight = false
	if err == nil {
		d.state = DialogClosed
	}
}

// State returns the current state and in-flight flag.
func (d *AlertDialog) State() (DialogState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.inFlight
}

// DialogRegistry holds one AlertDialog per open form while it is in use.
// Forms are identified by the user and a client-chosen dialog id, so two
// tabs of the same user never block each other.
type DialogRegistry struct {
	mu      sync.Mutex
	dialogs map[dialogKey]*AlertDialog
}

type dialogKey struct {
	userID   string
	dialogID string
}

// NewDialogRegistry creates an empty registry.
func NewDialogRegistry() *DialogRegistry {
	return &DialogRegistry{dialogs: make(map[dialogKey]*AlertDialog)}
}

// Submit opens the dialog identified by userID and dialogID, runs save as
// its single in-flight submission and closes it on success. A concurrent
// Submit for the same dialog fails with ErrSubmitInProgress without calling
// save. An empty dialogID is an anonymous form and is never gated.
func (r *DialogRegistry) Submit(userID, dialogID string, save func() error) error {
	if dialogID == "" {
		return save()
	}
	key := dialogKey{userID: userID, dialogID: dialogID}

	r.mu.Lock()
	d, ok := r.dialogs[key]
	if !ok {
		d = NewAlertDialog()
		r.dialogs[key] = d
	}
	d.Open()
	if err := d.BeginSubmit(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	err := save()
	d.FinishSubmit(err)

	r.mu.Lock()
	if state, inFlight := d.State(); state == DialogClosed && !inFlight {
		delete(r.dialogs, key)
	}
	r.mu.Unlock()
	return err
}

// Len returns the number of tracked dialogs.
func (r *DialogRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dialogs)
}
