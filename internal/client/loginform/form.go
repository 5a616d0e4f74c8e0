// Package loginform models the login/register form: two modes, a live
// password match indicator, and submission through the API client.
package loginform

import (
	"context"

	"github.com/rgoncalves/marketdash/internal/client"
)

type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// MatchState is the tri-state password match indicator shown while
// registering: unknown until the confirmation field has input.
type MatchState int

const (
	MatchUnknown MatchState = iota
	MatchYes
	MatchNo
)

type Submitter interface {
	Register(ctx context.Context, req client.RegisterRequest) (client.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type Form struct {
	api     Submitter
	onToken func(token string)

	mode     Mode
	username string
	email    string
	password string
	confirm  string

	match  MatchState
	errMsg string
}

func New(api Submitter, onToken func(token string)) *Form {
	return &Form{api: api, onToken: onToken}
}

func (f *Form) Mode() Mode        { return f.mode }
func (f *Form) Match() MatchState { return f.match }
func (f *Form) Err() string       { return f.errMsg }

// ToggleMode switches between login and register, clearing every field
// and any previous error or match state.
func (f *Form) ToggleMode() {
	if f.mode == ModeLogin {
		f.mode = ModeRegister
	} else {
		f.mode = ModeLogin
	}

	f.username = ""
	f.email = ""
	f.password = ""
	f.confirm = ""
	f.match = MatchUnknown
	f.errMsg = ""
}

func (f *Form) SetUsername(v string) { f.username = v }
func (f *Form) SetEmail(v string)    { f.email = v }

func (f *Form) SetPassword(v string) {
	f.password = v
	f.recomputeMatch()
}

func (f *Form) SetConfirm(v string) {
	f.confirm = v
	f.recomputeMatch()
}

func (f *Form) recomputeMatch() {
	if f.mode != ModeRegister {
		return
	}

	switch {
	case f.confirm == "":
		f.match = MatchUnknown
	case f.password == f.confirm:
		f.match = MatchYes
	default:
		f.match = MatchNo
	}
}

// Submit runs the current mode's action. Register rejects locally on a
// password mismatch without touching the network; login persists the
// issued token (the client stores it) and hands it to the parent.
func (f *Form) Submit(ctx context.Context) error {
	f.errMsg = ""

	if f.mode == ModeRegister {
		if f.password != f.confirm {
			f.errMsg = "Passwords do not match."
			return nil
		}

		_, err := f.api.Register(ctx, client.RegisterRequest{
			Username: f.username,
			Email:    f.email,
			Password: f.password,
		})

		if err != nil {
			f.errMsg = "Invalid credentials or server error."
			return err
		}

		// back to login with a clean slate, same as the web form
		f.ToggleMode()
		return nil
	}

	token, err := f.api.Login(ctx, f.email, f.password)

	if err != nil {
		f.errMsg = "Invalid credentials or server error."
		return err
	}

	if f.onToken != nil {
		f.onToken(token)
	}

	return nil
}
