// ABOUTME: Pure state machine for the task-creation dialog.
// ABOUTME: Apply maps (session, input) to the next session and the effects to run.

package wizard

import (
	"strings"
	"time"

	"github.com/2389/taskbridge/internal/deadline"
	"github.com/2389/taskbridge/internal/session"
)

// Machine applies inputs to sessions. It holds no mutable state.
type Machine struct {
	// Location is the timezone deadlines are computed in.
	Location *time.Location
}

// Apply returns the session that results from in and the effects the
// caller must execute. It performs no I/O. Inputs that do not apply to the
// current stage return s unchanged with no effects.
func (m Machine) Apply(s session.Session, in Input) (session.Session, []Effect) {
	if s.Stage.Terminal() {
		return s, nil
	}

	switch in := in.(type) {
	case Start:
		return s, m.prompt(&s)
	case Text:
		if in.Author != s.Owner {
			return s, nil
		}
		return m.text(s, in)
	case Select:
		if in.Author != s.Owner {
			return s, nil
		}
		return m.selectOption(s, in)
	case Control:
		if !in.Forced && in.Author != s.Owner {
			return s, nil
		}
		return m.control(s, in)
	case OptionsLoaded:
		return m.optionsLoaded(s, in)
	case LoadFailed:
		if in.Stage != s.Stage {
			return s, nil
		}
		return s, []Effect{
			PostThread{Text: loadFailedText(in.Err)},
			RenderCard{Card: Card{Stage: s.Stage, Text: cardText(s), Retry: true, Cancel: true}},
		}
	case CardPosted:
		s.CardPostID = in.PostID
		return s, nil
	case TaskCreated:
		return m.taskCreated(s, in)
	case TaskFailed:
		return m.taskFailed(s, in)
	case CommentAppended:
		if in.PostID == "" {
			return s, nil
		}
		return s, []Effect{React{PostID: in.PostID, Emoji: appendedEmoji}}
	case CommentFailed:
		return s, []Effect{PostThread{Text: commentFailedText(in.Err)}}
	}
	return s, nil
}

func touch(s *session.Session, at time.Time) {
	if !at.IsZero() {
		s.LastActivity = at
	}
}

// prompt shows the card for the current stage, loading options first when
// none are on hand.
func (m Machine) prompt(s *session.Session) []Effect {
	switch s.Stage {
	case session.StageAwaitingDeadline:
		s.Offered = deadlineOptions()
		return []Effect{RenderCard{Card: m.card(*s)}}
	case session.StageAwaitingCustomDate:
		return []Effect{PostThread{Text: msgAskCustomDate}}
	case session.StageActive:
		return nil
	}

	if len(s.Offered) > 0 {
		return []Effect{RenderCard{Card: m.card(*s)}}
	}
	return []Effect{load(*s)}
}

func load(s session.Session) Effect {
	return LoadOptions{
		Stage:     s.Stage,
		ProjectID: s.ProjectID,
		BoardID:   s.BoardID,
		Owner:     s.Owner,
	}
}

func (m Machine) card(s session.Session) Card {
	c := Card{
		Stage:   s.Stage,
		Text:    cardText(s),
		Style:   StyleSelect,
		Options: s.Offered,
		Cancel:  true,
	}
	if s.Stage == session.StageAwaitingDeadline {
		c.Style = StyleButtons
	}
	return c
}

func deadlineOptions() []session.Option {
	choices := deadline.Choices()
	opts := make([]session.Option, 0, len(choices))
	for _, c := range choices {
		opts = append(opts, session.Option{ID: c, Label: deadline.Label(c)})
	}
	return opts
}

func (m Machine) text(s session.Session, in Text) (session.Session, []Effect) {
	body := strings.TrimSpace(in.Text)
	if body == "" {
		return s, nil
	}
	touch(&s, in.At)

	switch s.Stage {
	case session.StageActive:
		return s, []Effect{AppendComment{
			TaskID: s.TaskID,
			Author: in.Author,
			PostID: in.PostID,
			Text:   in.Text,
			At:     in.At,
		}}
	case session.StageAwaitingCustomDate:
		d, err := deadline.Resolve(body, in.At, m.Location)
		if err != nil {
			return s, []Effect{PostThread{Text: invalidDateText(body)}}
		}
		s.Deadline = &d
		s.DeadlineChoice = body
		return s, []Effect{CreateTask{Task: draft(s)}}
	}

	return s, []Effect{PostThread{Text: msgUseCard}}
}

func (m Machine) selectOption(s session.Session, in Select) (session.Session, []Effect) {
	if in.Stage != s.Stage || !s.Stage.Selecting() {
		// Stale or duplicate click on an earlier card.
		return s, nil
	}

	opt, ok := s.Offers(in.OptionID)
	if !ok {
		touch(&s, in.At)
		return s, m.prompt(&s)
	}
	touch(&s, in.At)

	if s.Stage == session.StageAwaitingDeadline {
		return m.chooseDeadline(s, opt, in.At)
	}

	var effects []Effect
	if s.CardPostID != "" {
		effects = append(effects, CloseCard{PostID: s.CardPostID, Text: chosenText(s.Stage, opt.Label)})
	}
	s = choose(s, opt)
	return s, append(effects, m.prompt(&s)...)
}

// choose records opt for the current stage and advances one stage.
func choose(s session.Session, opt session.Option) session.Session {
	switch s.Stage {
	case session.StageAwaitingProject:
		s.ProjectID, s.ProjectTitle = opt.ID, opt.Label
		s.Stage = session.StageAwaitingBoard
	case session.StageAwaitingBoard:
		s.BoardID, s.BoardTitle = opt.ID, opt.Label
		s.Stage = session.StageAwaitingColumn
	case session.StageAwaitingColumn:
		s.ColumnID, s.ColumnTitle = opt.ID, opt.Label
		s.Stage = session.StageAwaitingAssignee
	case session.StageAwaitingAssignee:
		s.AssigneeID, s.AssigneeLabel = opt.ID, opt.Label
		s.Stage = session.StageAwaitingDeadline
	}
	s.Offered = nil
	s.CardPostID = ""
	return s
}

func (m Machine) chooseDeadline(s session.Session, opt session.Option, now time.Time) (session.Session, []Effect) {
	var effects []Effect
	if s.CardPostID != "" {
		effects = append(effects, CloseCard{PostID: s.CardPostID, Text: chosenText(s.Stage, opt.Label)})
		s.CardPostID = ""
	}

	if opt.ID == deadline.ChoiceCustom {
		s.Stage = session.StageAwaitingCustomDate
		s.Offered = nil
		return s, append(effects, PostThread{Text: msgAskCustomDate})
	}

	d, err := deadline.Resolve(opt.ID, now, m.Location)
	if err != nil {
		return s, m.prompt(&s)
	}
	s.Deadline = &d
	s.DeadlineChoice = opt.ID
	return s, append(effects, CreateTask{Task: draft(s)})
}

func draft(s session.Session) TaskDraft {
	d := TaskDraft{
		Title:        s.Title,
		Owner:        s.Owner,
		ProjectID:    s.ProjectID,
		ProjectTitle: s.ProjectTitle,
		BoardID:      s.BoardID,
		ColumnID:     s.ColumnID,
		AssigneeID:   s.AssigneeID,
	}
	if s.Deadline != nil {
		d.Deadline = *s.Deadline
	}
	return d
}

func (m Machine) control(s session.Session, in Control) (session.Session, []Effect) {
	switch in.Kind {
	case ControlCancel:
		var effects []Effect
		if s.CardPostID != "" {
			effects = append(effects, CloseCard{PostID: s.CardPostID, Text: cancelledText(s)})
		}
		touch(&s, in.At)
		s.Stage = session.StageCancelled
		return s, append(effects, PostThread{Text: cancelledText(s)})

	case ControlFinish:
		if s.Stage == session.StageActive {
			return m.finish(s, in)
		}
		if !in.Forced {
			return s, nil
		}
		var effects []Effect
		if s.CardPostID != "" {
			effects = append(effects, CloseCard{PostID: s.CardPostID, Text: expiredText(s)})
		}
		s.Stage = session.StageFinished
		return s, append(effects, PostThread{Text: expiredText(s)})

	case ControlRetry:
		touch(&s, in.At)
		if s.Stage != session.StageAwaitingDeadline {
			s.Offered = nil
		}
		return s, m.prompt(&s)
	}
	return s, nil
}

func (m Machine) finish(s session.Session, in Control) (session.Session, []Effect) {
	var effects []Effect
	if s.CardPostID != "" {
		effects = append(effects, CloseCard{PostID: s.CardPostID, Text: closedActiveText(s)})
	}

	thread := Summary(s)
	if in.Forced {
		thread += "\n" + msgAutoFinished
	} else {
		touch(&s, in.At)
	}
	s.Stage = session.StageFinished

	return s, append(effects,
		PostThread{Text: thread},
		PostChannel{Text: Summary(s)},
	)
}

func (m Machine) optionsLoaded(s session.Session, in OptionsLoaded) (session.Session, []Effect) {
	if in.Stage != s.Stage || !s.Stage.Selecting() {
		return s, nil
	}

	switch len(in.Options) {
	case 0:
		text := noOptionsText(s)
		s.Stage = session.StageCancelled
		return s, []Effect{PostThread{Text: text}}
	case 1:
		if s.Stage == session.StageAwaitingBoard || s.Stage == session.StageAwaitingColumn {
			opt := in.Options[0]
			notice := PostThread{Text: autoChosenText(s.Stage, opt.Label)}
			s = choose(s, opt)
			return s, append([]Effect{notice}, m.prompt(&s)...)
		}
	}

	s.Offered = in.Options
	return s, []Effect{RenderCard{Card: m.card(s)}}
}

func (m Machine) taskCreated(s session.Session, in TaskCreated) (session.Session, []Effect) {
	if s.TaskID != "" {
		return s, nil
	}
	if s.Stage != session.StageAwaitingDeadline && s.Stage != session.StageAwaitingCustomDate {
		return s, nil
	}

	s.TaskID = in.ID
	s.TaskURL = in.URL
	s.Stage = session.StageActive
	s.Offered = nil
	s.CardPostID = ""

	return s, []Effect{RenderCard{Card: Card{
		Stage:  session.StageActive,
		Text:   activeText(s),
		Finish: true,
	}}}
}

func (m Machine) taskFailed(s session.Session, in TaskFailed) (session.Session, []Effect) {
	if s.TaskID != "" {
		return s, nil
	}
	s.Deadline = nil
	s.DeadlineChoice = ""

	effects := []Effect{PostThread{Text: createFailedText(in.Err)}}
	return s, append(effects, m.prompt(&s)...)
}
