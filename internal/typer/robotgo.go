package typer

import (
	"github.com/go-vgo/robotgo"
)

// RobotSink injects keystrokes into the focused window via robotgo
type RobotSink struct{}

// NewRobotSink creates the production keystroke sink
func NewRobotSink() *RobotSink {
	return &RobotSink{}
}

// TypeChar emits a single character
func (s *RobotSink) TypeChar(r rune) error {
	robotgo.TypeStr(string(r))
	return nil
}
