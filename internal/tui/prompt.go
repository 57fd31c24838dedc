package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazyday/internal/experience"
	"github.com/Joseda-hg/lazyday/internal/model"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

type promptKind int

const (
	promptAdhoc promptKind = iota
	promptResponse
)

// promptState is the single-line input popup used for new ad-hoc items and
// for answering an experience.
type promptState struct {
	kind       promptKind
	title      string
	experience model.Experience
}

func (u *UI) openAdhocPrompt(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewToday {
		return nil
	}
	u.prompt = &promptState{kind: promptAdhoc, title: "New item for today"}
	return nil
}

func (u *UI) openResponsePrompt(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewPending {
		return nil
	}
	exp := u.selectedExperience()
	if exp == nil {
		return nil
	}
	title := exp.Name + ": your answer"
	if exp.ResponseType == model.ResponseFixedChoice {
		choices := make([]string, 0, len(exp.Responses))
		for i, response := range exp.Responses {
			choices = append(choices, fmt.Sprintf("%d %s", i+1, response))
		}
		title = fmt.Sprintf("%s: %s", exp.Name, strings.Join(choices, ", "))
	}
	u.prompt = &promptState{kind: promptResponse, title: title, experience: *exp}
	return nil
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/2)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewPrompt, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
		view.Clear()
	}
	view.Title = u.prompt.title
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, view *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	if err := u.submitPromptValue(view.Buffer()); err != nil {
		u.status = err.Error()
	}
	return u.closePrompt(gui)
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	return u.closePrompt(gui)
}

func (u *UI) closePrompt(gui *gocui.Gui) error {
	u.prompt = nil
	_ = gui.DeleteView(viewPrompt)
	_, _ = gui.SetCurrentView(u.focus)
	return u.loadAll()
}

// submitPromptValue applies what was typed into the prompt. An empty value
// does nothing. The prompt is cleared either way.
func (u *UI) submitPromptValue(raw string) error {
	state := u.prompt
	u.prompt = nil
	value := strings.TrimSpace(raw)
	if state == nil || value == "" {
		return nil
	}

	switch state.kind {
	case promptAdhoc:
		item, err := u.today.AddAdhoc(value)
		if err != nil {
			return err
		}
		u.status = fmt.Sprintf("added %s", item.Label())
	case promptResponse:
		in, err := responseFromPrompt(state.experience, value)
		if err != nil {
			return err
		}
		if _, _, err := u.service.RecordResponse(in); err != nil {
			return err
		}
		u.status = fmt.Sprintf("answered %s", state.experience.Name)
	}
	return u.loadAll()
}

// responseFromPrompt reads a 1-based choice number for fixed-choice
// experiences and free text otherwise.
func responseFromPrompt(exp model.Experience, value string) (experience.ResponseInput, error) {
	in := experience.ResponseInput{ExperienceID: exp.ID, Type: model.ResponseAnswered}
	if exp.ResponseType != model.ResponseFixedChoice {
		in.Text = value
		return in, nil
	}
	choice, err := strconv.Atoi(value)
	if err != nil || choice < 1 || choice > len(exp.Responses) {
		return in, fmt.Errorf("pick a choice between 1 and %d", len(exp.Responses))
	}
	index := choice - 1
	in.SelectedIndex = &index
	return in, nil
}
