package session

import "errors"

// ErrNoActiveSession is returned when an operation needs a started session.
var ErrNoActiveSession = errors.New("no active session")

// ErrTurnInProgress is returned when input arrives while a previous turn's
// grace window or state transition is still pending.
var ErrTurnInProgress = errors.New("turn already in progress")

// ErrNoActiveRecording is returned by StopRecording when no recording was
// started.
var ErrNoActiveRecording = errors.New("no active recording")
