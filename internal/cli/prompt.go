// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peterh/liner"
)

// Prompter reads answers from the user.
type Prompter interface {
	Prompt(label string) (string, error)
	Password(label string) (string, error)
	Close() error
}

// linePrompter prompts on the terminal with liner. When stdin is not a
// terminal liner reads plain lines, and passwords are read the same way.
type linePrompter struct {
	state *liner.State
}

func newLinePrompter() *linePrompter {
	return &linePrompter{}
}

func (p *linePrompter) line() *liner.State {
	if p.state == nil {
		p.state = liner.NewLiner()
		p.state.SetCtrlCAborts(true)
	}
	return p.state
}

func (p *linePrompter) Prompt(label string) (string, error) {
	s, err := p.line().Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errCancelled
	}
	return strings.TrimSpace(s), err
}

func (p *linePrompter) Password(label string) (string, error) {
	s, err := p.line().PasswordPrompt(label)
	switch {
	case errors.Is(err, liner.ErrNotTerminalOutput):
		return p.Prompt(label)
	case errors.Is(err, liner.ErrPromptAborted):
		return "", errCancelled
	}
	return s, err
}

// Close restores the terminal mode.
func (p *linePrompter) Close() error {
	if p.state == nil {
		return nil
	}
	err := p.state.Close()
	p.state = nil
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// promptDefault asks for label unless value is already set.
func promptDefault(p Prompter, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.Prompt(label)
}

// promptRequired asks until it gets a non-empty answer, up to three times.
func promptRequired(p Prompter, label string, password bool) (string, error) {
	for range 3 {
		var (
			s   string
			err error
		)
		if password {
			s, err = p.Password(label)
		} else {
			s, err = p.Prompt(label)
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
	}
	return "", usageErrorf("%s is required", strings.TrimSuffix(strings.TrimSpace(label), ":"))
}

// promptNewPassword asks for a password twice.
func promptNewPassword(p Prompter, label string) (string, error) {
	pw, err := promptRequired(p, label, true)
	if err != nil {
		return "", err
	}
	again, err := p.Password("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", usageErrorf("passwords do not match")
	}
	return pw, nil
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(p Prompter, question string) (bool, error) {
	answer, err := p.Prompt(fmt.Sprintf("%s [y/N]: ", question))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
