package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/experience"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/propagate"
	"github.com/Joseda-hg/lazyday/internal/today"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

const (
	viewHeader      = "header"
	viewFooter      = "footer"
	viewToday       = "today"
	viewPending     = "pending"
	viewDetail      = "detail"
	viewExperiences = "experiences"
	viewPrompt      = "prompt"
	viewHelp        = "help"
)

const refreshInterval = 5 * time.Second

// Deps are the services the dashboard reads and writes.
type Deps struct {
	Today       *today.List
	Propagator  *propagate.Propagator
	Experiences *experience.Service
	Clock       clock.Clock
	Logger      *slog.Logger
}

type UI struct {
	today      *today.List
	propagator *propagate.Propagator
	service    *experience.Service
	clock      clock.Clock
	logger     *slog.Logger
	gui        *gocui.Gui

	items   []model.TodayItem
	pending []model.Experience
	all     []model.Experience

	selectedToday       int
	selectedPending     int
	selectedExperiences int
	focus               string

	prompt     *promptState
	helpActive bool
	status     string
}

func newUI(deps Deps) *UI {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &UI{
		today:      deps.Today,
		propagator: deps.Propagator,
		service:    deps.Experiences,
		clock:      deps.Clock,
		logger:     deps.Logger,
		focus:      viewToday,
	}
}

func Run(deps Deps) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(deps)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadAll(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go ui.refreshLoop(done)

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

// refreshLoop reloads the lists periodically so experiences the scheduler
// moves to pending show up without a keypress.
func (u *UI) refreshLoop(done <-chan struct{}) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			u.gui.Update(func(*gocui.Gui) error {
				if u.inputActive() {
					return nil
				}
				if err := u.loadAll(); err != nil {
					u.logger.Warn("dashboard refresh failed", "error", err)
					u.status = err.Error()
				}
				return nil
			})
		}
	}
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.reload); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyTab, gocui.ModNone, u.switchFocus); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '1', gocui.ModNone, u.focusToday); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '2', gocui.ModNone, u.focusPending); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '3', gocui.ModNone, u.focusExperiences); err != nil {
		return err
	}
	for _, name := range []string{viewToday, viewPending, viewExperiences} {
		if err := gui.SetKeybinding(name, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'j', gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'k', gocui.ModNone, u.moveUp); err != nil {
			return err
		}
	}
	if err := gui.SetKeybinding(viewToday, 'x', gocui.ModNone, u.completeItem); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewToday, 'u', gocui.ModNone, u.uncompleteItem); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewToday, 'd', gocui.ModNone, u.removeItem); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewToday, 'a', gocui.ModNone, u.openAdhocPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewToday, 'K', gocui.ModNone, u.moveItemUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewToday, 'J', gocui.ModNone, u.moveItemDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPending, gocui.KeyEnter, gocui.ModNone, u.openResponsePrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPending, 's', gocui.ModNone, u.skipPending); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewExperiences, 'p', gocui.ModNone, u.togglePause); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEnter, gocui.ModNone, u.submitPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewPrompt, gocui.KeyEsc, gocui.ModNone, u.cancelPrompt); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, 'q', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	for _, name := range []string{viewToday, viewPending, viewExperiences} {
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: name, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, name, opts)
		}}); err != nil {
			return err
		}
	}
	if err := u.bindMouseScroll(gui); err != nil {
		return err
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := maxY - 2
	if footerY1 < 1 {
		footerY1 = 1
	}
	footerY0 := footerY1 - 2
	if footerY0 < 1 {
		footerY0 = 1
	}
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	layout := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX0 := 0
	leftX1 := leftX0 + layout.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	todayY0 := bodyTop
	todayY1 := todayY0 + layout.todayHeight - 1
	pendingY0 := todayY1 + 1
	pendingY1 := bodyBottom

	detailY0 := bodyTop
	detailY1 := detailY0 + layout.detailHeight - 1
	experiencesY0 := detailY1 + 1
	experiencesY1 := bodyBottom

	todayView, err := gui.SetView(viewToday, leftX0, todayY0, leftX1, todayY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		todayView.Title = "1 Today"
		todayView.TitleColor = gocui.ColorGreen
	}
	applyViewStyle(todayView, u.focus == viewToday, true)
	u.renderToday(todayView)

	pendingView, err := gui.SetView(viewPending, leftX0, pendingY0, leftX1, pendingY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pendingView.Title = "2 Waiting for a response"
		pendingView.TitleColor = gocui.ColorRed
	}
	applyViewStyle(pendingView, u.focus == viewPending, true)
	u.renderExperienceList(pendingView, u.pending, u.selectedPending, u.focus == viewPending, formatPendingLine)

	detailView, err := gui.SetView(viewDetail, rightX0, detailY0, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Detail"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false, false)
	u.renderDetail(detailView)

	experiencesView, err := gui.SetView(viewExperiences, rightX0, experiencesY0, rightX1, experiencesY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		experiencesView.Title = "3 Experiences"
		experiencesView.TitleColor = gocui.ColorYellow
	}
	applyViewStyle(experiencesView, u.focus == viewExperiences, true)
	u.renderExperienceList(experiencesView, u.all, u.selectedExperiences, u.focus == viewExperiences, u.formatExperienceLine)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.prompt != nil {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.prompt != nil

	return nil
}

type layout struct {
	leftWidth     int
	todayHeight   int
	pendingHeight int
	detailHeight  int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 2
	if leftWidth < 30 {
		leftWidth = 30
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	todayHeight := int(float64(safeHeight) * 0.6)
	if todayHeight < 4 {
		todayHeight = 4
	}
	pendingHeight := safeHeight - todayHeight
	if pendingHeight < 4 {
		pendingHeight = 4
		todayHeight = max(safeHeight-pendingHeight, 4)
	}

	detailHeight := int(float64(safeHeight) * 0.45)
	if detailHeight < 4 {
		detailHeight = 4
	}

	return layout{
		leftWidth:     leftWidth,
		todayHeight:   todayHeight,
		pendingHeight: pendingHeight,
		detailHeight:  detailHeight,
	}
}

func (u *UI) loadAll() error {
	doc, err := u.today.Get()
	if err != nil {
		return err
	}
	all, err := u.service.List()
	if err != nil {
		return err
	}

	pending := make([]model.Experience, 0, len(all))
	for _, exp := range all {
		if exp.PendingResponse {
			pending = append(pending, exp)
		}
	}

	u.items = doc.Items
	u.pending = pending
	u.all = all

	if u.selectedToday >= len(u.items) {
		u.selectedToday = max(len(u.items)-1, 0)
	}
	if u.selectedPending >= len(u.pending) {
		u.selectedPending = max(len(u.pending)-1, 0)
	}
	if u.selectedExperiences >= len(u.all) {
		u.selectedExperiences = max(len(u.all)-1, 0)
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	open, done := 0, 0
	for _, item := range u.items {
		if item.CompletedAt != nil {
			done++
		} else {
			open++
		}
	}
	fmt.Fprintf(view, "lazyday | %s | Today: %d open, %d done | Waiting: %d",
		u.clock.Now().Format("Mon 2006-01-02 15:04"), open, done, len(u.pending))
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "x done | u undo | d remove | a add | J/K move | enter respond | s skip | p pause/resume")
	fmt.Fprintln(view, "tab cycle | 1-3 panes | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderToday(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewToday
	for i, item := range u.items {
		fmt.Fprintf(view, "%s %s\n", selectionPrefix(i == u.selectedToday, focused), formatTodayItem(item))
	}
	if focused {
		view.SetCursor(0, min(u.selectedToday, len(u.items)-1))
	}
}

func (u *UI) renderExperienceList(view *gocui.View, list []model.Experience, selected int, focused bool, format func(model.Experience) string) {
	view.Clear()
	for i, exp := range list {
		fmt.Fprintf(view, "%s %s\n", selectionPrefix(i == selected, focused), format(exp))
	}
	if focused {
		view.SetCursor(0, min(selected, len(list)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	var lines []string
	switch u.focus {
	case viewToday:
		item := u.selectedItem()
		if item == nil {
			fmt.Fprint(view, "Nothing planned for today")
			return
		}
		lines = todayItemDetail(*item)
	default:
		exp := u.selectedExperience()
		if exp == nil {
			fmt.Fprint(view, "No experience selected")
			return
		}
		lines = experienceDetail(*exp)
	}
	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := opts.Y - y0 - 1 + oy
	if row < 0 {
		row = 0
	}

	switch viewName {
	case viewToday:
		u.selectedToday = min(row, len(u.items)-1)
	case viewPending:
		u.selectedPending = min(row, len(u.pending)-1)
	case viewExperiences:
		u.selectedExperiences = min(row, len(u.all)-1)
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	views := []string{viewToday, viewPending, viewExperiences, viewDetail}
	for _, name := range views {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) selectedItem() *model.TodayItem {
	if u.selectedToday >= 0 && u.selectedToday < len(u.items) {
		return &u.items[u.selectedToday]
	}
	return nil
}

func (u *UI) selectedExperience() *model.Experience {
	switch u.focus {
	case viewExperiences:
		if u.selectedExperiences >= 0 && u.selectedExperiences < len(u.all) {
			return &u.all[u.selectedExperiences]
		}
	default:
		if u.selectedPending >= 0 && u.selectedPending < len(u.pending) {
			return &u.pending[u.selectedPending]
		}
	}
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}

	switch u.focus {
	case viewToday:
		u.focus = viewPending
	case viewPending:
		u.focus = viewExperiences
	default:
		u.focus = viewToday
	}
	_, _ = gui.SetCurrentView(u.focus)
	return u.reload(gui, nil)
}

func (u *UI) focusToday(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewToday)
}

func (u *UI) focusPending(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewPending)
}

func (u *UI) focusExperiences(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewExperiences)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	_, _ = gui.SetCurrentView(name)
	return u.reload(gui, nil)
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewToday:
		if u.selectedToday < len(u.items)-1 {
			u.selectedToday++
		}
	case viewPending:
		if u.selectedPending < len(u.pending)-1 {
			u.selectedPending++
		}
	case viewExperiences:
		if u.selectedExperiences < len(u.all)-1 {
			u.selectedExperiences++
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewToday:
		if u.selectedToday > 0 {
			u.selectedToday--
		}
	case viewPending:
		if u.selectedPending > 0 {
			u.selectedPending--
		}
	case viewExperiences:
		if u.selectedExperiences > 0 {
			u.selectedExperiences--
		}
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadAll()
}

// completeItem completes the selected Today item, applying the source
// collection's completion rule for linked items.
func (u *UI) completeItem(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	item := u.selectedItem()
	if item == nil {
		return nil
	}
	result, err := u.propagator.CompleteToday(item.ID, true)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = fmt.Sprintf("done: %s", item.Label())
	if item.IsLinked() && !result.Propagated {
		u.status = fmt.Sprintf("removed %s, but %s was not updated", item.Label(), item.Source.Page)
	}
	return u.loadAll()
}

func (u *UI) uncompleteItem(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	item := u.selectedItem()
	if item == nil || item.CompletedAt == nil {
		return nil
	}
	if _, err := u.propagator.CompleteToday(item.ID, false); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadAll()
}

func (u *UI) removeItem(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	item := u.selectedItem()
	if item == nil {
		return nil
	}
	if _, err := u.today.Remove(item.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadAll()
}

func (u *UI) moveItemUp(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftItem(-1)
}

func (u *UI) moveItemDown(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftItem(1)
}

func (u *UI) shiftItem(delta int) error {
	if u.inputActive() {
		return nil
	}
	item := u.selectedItem()
	if item == nil {
		return nil
	}
	target := u.selectedToday + delta
	if target < 0 || target >= len(u.items) {
		return nil
	}
	if err := u.today.Reorder(item.ID, target); err != nil {
		u.status = err.Error()
		return nil
	}
	u.selectedToday = target
	return u.loadAll()
}

func (u *UI) skipPending(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewPending {
		return nil
	}
	exp := u.selectedExperience()
	if exp == nil {
		return nil
	}
	if _, _, err := u.service.RecordResponse(experience.ResponseInput{ExperienceID: exp.ID, Type: model.ResponseSkipped}); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = fmt.Sprintf("skipped %s", exp.Name)
	return u.loadAll()
}

// togglePause pauses an active experience or resumes a paused one.
func (u *UI) togglePause(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewExperiences {
		return nil
	}
	exp := u.selectedExperience()
	if exp == nil {
		return nil
	}
	in := inputFrom(*exp)
	if exp.Status == model.StatusActive {
		in.Status = model.StatusPaused
	} else {
		in.Status = model.StatusActive
	}
	updated, err := u.service.Update(exp.ID, in)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = fmt.Sprintf("%s is %s", updated.Name, updated.Status)
	return u.loadAll()
}

func inputFrom(exp model.Experience) experience.Input {
	return experience.Input{
		Name:           exp.Name,
		Description:    exp.Description,
		TriggerType:    exp.TriggerType,
		IntervalNumber: exp.IntervalNumber,
		IntervalType:   exp.IntervalType,
		TimesOfDay:     exp.TimesOfDay,
		DaysOfWeek:     exp.DaysOfWeek,
		ResponseType:   exp.ResponseType,
		Responses:      exp.Responses,
		Status:         exp.Status,
	}
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 16
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewHelp, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	return u.prompt != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes (today/waiting/experiences)",
		"  1 Today | 2 Waiting | 3 Experiences",
		"  j/k or arrows move selection",
		"  mouse click to focus/select, wheel scrolls",
		"",
		"Today:",
		"  x done (updates the source task) | u undo | d remove",
		"  a add an ad-hoc item | J/K move item down/up",
		"",
		"Waiting / Experiences:",
		"  enter respond | s skip | p pause/resume (Experiences pane)",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func selectionPrefix(selected, focused bool) string {
	if !selected {
		return " "
	}
	if focused {
		return ">"
	}
	return "*"
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
